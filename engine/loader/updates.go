package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"hermannm.dev/dashboard/engine"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// Manifest is the update feed an engine distributor publishes: the latest
// version, and where to fetch each version's artifact.
type Manifest struct {
	Latest   string                   `json:"latest"`
	Versions map[string]ManifestEntry `json:"versions"`
}

type ManifestEntry struct {
	// Artifact location, absolute or relative to the manifest URL.
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

type UpdateStatus struct {
	Updated         bool   `json:"updated"`
	Version         string `json:"version"`
	PreviousVersion string `json:"previous_version,omitempty"`
	Description     string `json:"description,omitempty"`
}

const (
	manifestFetchTimeout = 10 * time.Second
	artifactFetchTimeout = 15 * time.Second
)

// CheckForUpdates fetches the update manifest and, if it announces a version
// newer than the current one, downloads and loads its artifact. The new
// engine is validated before it is swapped in: a failed load or validation
// leaves the current engine untouched. Every attempt ends up in the persisted
// update log.
func (loader *Loader) CheckForUpdates(
	ctx context.Context,
	manifestURL string,
) (UpdateStatus, error) {
	manifest, err := fetchManifest(ctx, manifestURL)
	if err != nil {
		return UpdateStatus{}, wrap.Error(err, "failed to fetch engine update manifest")
	}
	if manifest.Latest == "" {
		return UpdateStatus{}, fmt.Errorf("engine update manifest at '%s' has no latest version", manifestURL)
	}

	currentVersion := loader.CurrentVersion()
	if manifest.Latest == currentVersion {
		log.Infof("engine version %s is up to date", currentVersion)
		return UpdateStatus{Updated: false, Version: currentVersion}, nil
	}

	entry, announced := manifest.Versions[manifest.Latest]
	if !announced {
		return UpdateStatus{}, fmt.Errorf(
			"engine update manifest announces version %s but has no artifact entry for it",
			manifest.Latest,
		)
	}

	artifact, err := fetchArtifact(ctx, manifestURL, entry.Path)
	if err != nil {
		loader.logUpdateFailure(manifest.Latest, err)
		return UpdateStatus{}, wrap.Errorf(
			err, "failed to fetch engine artifact for version %s", manifest.Latest,
		)
	}

	candidate, err := loader.runtime.Load(manifest.Latest, artifact)
	if err != nil {
		loader.logUpdateFailure(manifest.Latest, err)
		return UpdateStatus{}, wrap.Errorf(
			err, "failed to load engine version %s", manifest.Latest,
		)
	}

	if err := validateEngine(ctx, candidate, manifest.Latest); err != nil {
		loader.logUpdateFailure(manifest.Latest, err)
		return UpdateStatus{}, wrap.Errorf(
			err, "engine version %s failed validation, keeping version %s",
			manifest.Latest, currentVersion,
		)
	}

	if err := loader.applyUpdate(manifest.Latest, artifact, candidate, entry.Description); err != nil {
		return UpdateStatus{}, err
	}

	log.Infof("updated engine from version %s to %s", currentVersion, manifest.Latest)
	return UpdateStatus{
		Updated:         true,
		Version:         manifest.Latest,
		PreviousVersion: currentVersion,
		Description:     entry.Description,
	}, nil
}

// applyUpdate swaps the validated engine in and persists the new state. The
// outgoing engine stays loaded as the fallback version.
func (loader *Loader) applyUpdate(
	version string,
	artifact []byte,
	newEngine engine.Engine,
	description string,
) error {
	loader.mutex.Lock()
	defer loader.mutex.Unlock()

	record, err := loader.state.GetOrCreateRecord()
	if err != nil {
		return wrap.Error(err, "failed to read engine state before update")
	}

	record.PreviousVersion = record.Version
	record.PreviousArtifact = record.Artifact
	record.Version = version
	record.Artifact = artifact
	if description == "" {
		record.AppendUpdateLog("updated from %s to %s", record.PreviousVersion, version)
	} else {
		record.AppendUpdateLog(
			"updated from %s to %s: %s", record.PreviousVersion, version, description,
		)
	}

	if err := loader.state.SaveRecord(record); err != nil {
		return wrap.Error(err, "failed to persist engine state after update")
	}

	outgoing := loader.current
	loader.current = engineVersion{version: version, engine: newEngine}
	loader.previous = &outgoing
	return nil
}

func (loader *Loader) logUpdateFailure(version string, updateErr error) {
	record, err := loader.state.GetOrCreateRecord()
	if err != nil {
		log.ErrorCause(err, "failed to read engine state while logging update failure")
		return
	}

	record.AppendUpdateLog("update to %s failed: %v", version, updateErr)
	if err := loader.state.SaveRecord(record); err != nil {
		log.ErrorCause(err, "failed to persist engine update log")
	}
}

// validateEngine smoke-tests a freshly loaded engine before it can serve
// traffic.
func validateEngine(ctx context.Context, candidate engine.Engine, expectedVersion string) (err error) {
	defer func() {
		if panicked := recover(); panicked != nil {
			err = fmt.Errorf("engine panicked during validation: %v", panicked)
		}
	}()

	if version := candidate.Version(); version != expectedVersion {
		return fmt.Errorf("engine reports version '%s', expected '%s'", version, expectedVersion)
	}
	if _, err := candidate.GetModels(ctx); err != nil {
		return wrap.Error(err, "engine failed to list models")
	}
	return nil
}

func fetchManifest(ctx context.Context, manifestURL string) (Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, manifestFetchTimeout)
	defer cancel()

	body, err := fetchURL(ctx, manifestURL)
	if err != nil {
		return Manifest{}, err
	}

	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return Manifest{}, wrap.Error(err, "failed to parse update manifest")
	}
	return manifest, nil
}

func fetchArtifact(ctx context.Context, manifestURL string, artifactPath string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, artifactFetchTimeout)
	defer cancel()

	artifactURL, err := resolveArtifactURL(manifestURL, artifactPath)
	if err != nil {
		return nil, err
	}
	return fetchURL(ctx, artifactURL)
}

func resolveArtifactURL(manifestURL string, artifactPath string) (string, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return "", wrap.Errorf(err, "invalid manifest URL '%s'", manifestURL)
	}
	relative, err := url.Parse(artifactPath)
	if err != nil {
		return "", wrap.Errorf(err, "invalid artifact path '%s'", artifactPath)
	}
	return base.ResolveReference(relative).String(), nil
}

func fetchURL(ctx context.Context, fetchedURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchedURL, nil)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to create request for '%s'", fetchedURL)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, wrap.Errorf(err, "request to '%s' failed", fetchedURL)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to '%s' returned status %s", fetchedURL, response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read response from '%s'", fetchedURL)
	}
	return body, nil
}
