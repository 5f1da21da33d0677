package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"manimeditor/internal"
)

const manifestFileName string = "manifest.json"

var ErrNoManifestVersion = errors.New("no manifest version satisfies the constraint")

// Downloads the newest catalog manifest published under baseAddress that
// satisfies constraint, validates it and stores it under manifestPath.
// Returns the selected version.
func DownloadManifest(client *http.Client, baseAddress string, constraint string, manifestPath string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	baseAddress = strings.TrimSuffix(baseAddress, "/")

	versionsResponse, err := queryGet(client, fmt.Sprintf("%s/index.json", baseAddress))
	if err != nil {
		return "", err
	}
	versions, err := parse[map[string][]string](versionsResponse)
	if err != nil {
		return "", fmt.Errorf("error parsing version index: %w", err)
	}

	selected, err := newestVersion(versions["versions"], constraint)
	if err != nil {
		return "", err
	}

	manifestBytes, err := queryGet(client, fmt.Sprintf("%s/%s/%s", baseAddress, selected, manifestFileName))
	if err != nil {
		return "", err
	}

	if _, err := ParseManifest(manifestBytes); err != nil {
		return "", err
	}

	if err := internal.WriteFileAtomic(manifestPath, manifestBytes); err != nil {
		return "", fmt.Errorf("error storing manifest: %w", err)
	}

	return selected, nil
}

func newestVersion(versionStrings []string, constraint string) (string, error) {
	var constraints version.Constraints
	if constraint != "" {
		parsed, err := version.NewConstraint(constraint)
		if err != nil {
			return "", fmt.Errorf("invalid constraint %q: %w", constraint, err)
		}
		constraints = parsed
	}

	orderedVersions := make([]*version.Version, 0, len(versionStrings))
	for _, versionString := range versionStrings {
		parsed, err := version.NewVersion(versionString)
		if err != nil {
			return "", fmt.Errorf("error parsing version: %s", versionString)
		}
		if constraints != nil && !constraints.Check(parsed) {
			continue
		}
		orderedVersions = append(orderedVersions, parsed)
	}

	if len(orderedVersions) == 0 {
		return "", ErrNoManifestVersion
	}

	sort.Sort(version.Collection(orderedVersions))
	return orderedVersions[len(orderedVersions)-1].Original(), nil
}

func parse[T interface{}](source []byte) (T, error) {
	var parsedBody T
	err := json.Unmarshal(source, &parsedBody)
	return parsedBody, err
}

func queryGet(client *http.Client, url string) ([]byte, error) {
	request, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, response.Status)
	}

	return io.ReadAll(response.Body)
}
