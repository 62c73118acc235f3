package state

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/cardledger/mtg-tracker/internal/config"
	"github.com/cardledger/mtg-tracker/internal/models"
)

const (
	githubAPIBaseURL    = "https://api.github.com"
	githubUploadBaseURL = "https://uploads.github.com"
)

// GitHubReleaseBackend persists the snapshot and meta document as assets on
// a fixed GitHub release tag. Requests are throttled so scheduled runs stay
// well inside the API quota.
type GitHubReleaseBackend struct {
	client     *resty.Client
	limiter    *rate.Limiter
	repository string
	tag        string
	stateAsset string
	metaAsset  string
}

// releaseInfo is the subset of the release payload the backend needs.
type releaseInfo struct {
	ID     int64 `json:"id"`
	Assets []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"assets"`
}

// NewGitHubReleaseBackend creates a release-asset state backend. The API
// token is taken from GITHUB_TOKEN.
func NewGitHubReleaseBackend(cfg config.GitHubReleaseConfig) (*GitHubReleaseBackend, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("github_release state backend requires a repository")
	}

	tag := cfg.Tag
	if tag == "" {
		tag = "state-latest"
	}
	stateAsset := cfg.StateAssetName
	if stateAsset == "" {
		stateAsset = "state.csv"
	}
	metaAsset := cfg.MetaAssetName
	if metaAsset == "" {
		metaAsset = "meta.json"
	}

	client := resty.New().
		SetBaseURL(githubAPIBaseURL).
		SetHeader("Accept", "application/vnd.github+json").
		SetAuthToken(os.Getenv("GITHUB_TOKEN"))

	return &GitHubReleaseBackend{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(2), 5),
		repository: cfg.Repository,
		tag:        tag,
		stateAsset: stateAsset,
		metaAsset:  metaAsset,
	}, nil
}

// LoadState downloads and parses the snapshot and meta assets.
func (b *GitHubReleaseBackend) LoadState(ctx context.Context) ([]models.PriceRow, *models.RunMeta, error) {
	release, err := b.fetchRelease(ctx)
	if err != nil {
		return nil, nil, err
	}

	stateData, found, err := b.downloadAsset(ctx, release, b.stateAsset)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: release %s has no %s asset", ErrSnapshotNotFound, b.tag, b.stateAsset)
	}

	rows, _, err := readSnapshotFrom(bytes.NewReader(stateData))
	if err != nil {
		return nil, nil, fmt.Errorf("parse release snapshot: %w", err)
	}

	var meta *models.RunMeta
	metaData, found, err := b.downloadAsset(ctx, release, b.metaAsset)
	if err != nil {
		return nil, nil, err
	}
	if found {
		meta = &models.RunMeta{}
		if err := json.Unmarshal(metaData, meta); err != nil {
			return nil, nil, fmt.Errorf("parse release meta: %w", err)
		}
	}
	return rows, meta, nil
}

// SaveState replaces the snapshot and meta assets on the release.
func (b *GitHubReleaseBackend) SaveState(ctx context.Context, rows []models.PriceRow, meta *models.RunMeta) error {
	release, err := b.fetchRelease(ctx)
	if err != nil {
		return err
	}

	var snapshot bytes.Buffer
	if err := writeSnapshotTo(&snapshot, rows); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := b.replaceAsset(ctx, release, b.stateAsset, "text/csv", snapshot.Bytes()); err != nil {
		return err
	}

	if meta == nil {
		return nil
	}
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	return b.replaceAsset(ctx, release, b.metaAsset, "application/json", encoded)
}

func (b *GitHubReleaseBackend) fetchRelease(ctx context.Context) (*releaseInfo, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var release releaseInfo
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&release).
		Get(fmt.Sprintf("/repos/%s/releases/tags/%s", b.repository, b.tag))
	if err != nil {
		return nil, fmt.Errorf("fetch release %s@%s: %w", b.repository, b.tag, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch release %s@%s: %s", b.repository, b.tag, resp.Status())
	}
	return &release, nil
}

func (b *GitHubReleaseBackend) downloadAsset(ctx context.Context, release *releaseInfo, name string) ([]byte, bool, error) {
	for _, asset := range release.Assets {
		if asset.Name != name {
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
		resp, err := b.client.R().
			SetContext(ctx).
			SetHeader("Accept", "application/octet-stream").
			Get(asset.URL)
		if err != nil {
			return nil, false, fmt.Errorf("download asset %s: %w", name, err)
		}
		if resp.IsError() {
			return nil, false, fmt.Errorf("download asset %s: %s", name, resp.Status())
		}
		return resp.Body(), true, nil
	}
	return nil, false, nil
}

func (b *GitHubReleaseBackend) replaceAsset(ctx context.Context, release *releaseInfo, name, contentType string, data []byte) error {
	for _, asset := range release.Assets {
		if asset.Name != name {
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := b.client.R().
			SetContext(ctx).
			Delete(fmt.Sprintf("/repos/%s/releases/assets/%d", b.repository, asset.ID))
		if err != nil {
			return fmt.Errorf("delete asset %s: %w", name, err)
		}
		if resp.IsError() {
			return fmt.Errorf("delete asset %s: %s", name, resp.Status())
		}
		break
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Post(fmt.Sprintf("%s/repos/%s/releases/%d/assets?name=%s", githubUploadBaseURL, b.repository, release.ID, name))
	if err != nil {
		return fmt.Errorf("upload asset %s: %w", name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload asset %s: %s", name, resp.Status())
	}
	return nil
}
