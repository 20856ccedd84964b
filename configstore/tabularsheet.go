package configstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// credentialLocations mirrors the three well-known locations searched for
// a service-account credentials file, in order.
var credentialLocations = []string{
	".credentials.json",
	"~/.fermenator/credentials.json",
	"/etc/fermenator/credentials.json",
}

func findCredentialsFile() (string, error) {
	for _, loc := range credentialLocations {
		path := loc
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err == nil {
				path = filepath.Join(home, path[2:])
			}
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no credentials file found in any of %v", credentialLocations)
}

// sheetRanges names the four config sheets and the row range each occupies.
var sheetRanges = map[string]string{
	"relays":      "Relay!A2:C",
	"datasources": "DataSource!A2:C",
	"beers":       "Beer!A2:C",
	"managers":    "Manager!A2:C",
}

// TabularSheet is a Store backed by a spreadsheet with Relay/DataSource/
// Beer/Manager sheets, each holding rows of <name, key, value>. Reads are
// staged into a fresh ConfigSpec and only swapped in if they parse and
// validate completely, so a partial read never partially applies.
type TabularSheet struct {
	name            string
	spreadsheetID   string
	refreshInterval time.Duration
	bootstrapConfig map[string]interface{}

	mu       sync.Mutex
	svc      *sheets.Service
	lastHash string
}

// NewTabularSheet builds a TabularSheet store. The credentials file is
// resolved via findCredentialsFile on first use, not here.
func NewTabularSheet(name, spreadsheetID string, refreshInterval time.Duration,
	bootstrapConfig map[string]interface{}) (*TabularSheet, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet_id must be provided")
	}
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	return &TabularSheet{
		name:            name,
		spreadsheetID:   spreadsheetID,
		refreshInterval: refreshInterval,
		bootstrapConfig: bootstrapConfig,
	}, nil
}

func (t *TabularSheet) Name() string                  { return t.name }
func (t *TabularSheet) RefreshInterval() time.Duration { return t.refreshInterval }

// ensureService lazily opens the sheets client on first use, following
// the DataSource "open any network resource lazily" lifecycle rule.
func (t *TabularSheet) ensureService(ctx context.Context) (*sheets.Service, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.svc != nil {
		return t.svc, nil
	}
	credFile, err := findCredentialsFile()
	if err != nil {
		return nil, fmt.Errorf("tabularsheet: %w", err)
	}
	raw, err := os.ReadFile(credFile)
	if err != nil {
		return nil, fmt.Errorf("tabularsheet: reading credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw,
		"https://www.googleapis.com/auth/spreadsheets.readonly",
		"https://www.googleapis.com/auth/drive.readonly")
	if err != nil {
		return nil, fmt.Errorf("tabularsheet: parsing credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("tabularsheet: building sheets client: %w", err)
	}
	t.svc = svc
	return svc, nil
}

func (t *TabularSheet) fetchRange(ctx context.Context, rng string) ([][3]string, error) {
	svc, err := t.ensureService(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Spreadsheets.Values.Get(t.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("tabularsheet: fetching %s: %w", rng, err)
	}
	rows := make([][3]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		var cells [3]string
		for i := 0; i < 3 && i < len(row); i++ {
			if s, ok := row[i].(string); ok {
				cells[i] = s
			} else {
				cells[i] = fmt.Sprintf("%v", row[i])
			}
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// stageSpec fetches and decodes all four sheets into a fresh ConfigSpec,
// without mutating any stored state. Used by both Load and HasChanged so
// a change check never observes half-applied state.
func (t *TabularSheet) stageSpec(ctx context.Context) (*ConfigSpec, error) {
	staged := &ConfigSpec{}
	// Fixed order, not a map range: hashParts feeds the content hash below,
	// and map iteration order is randomized per run.
	sectionOrder := []string{"relays", "datasources", "beers", "managers"}
	sectionDest := map[string]*map[string]ObjectConfig{
		"relays":      &staged.Relays,
		"datasources": &staged.DataSources,
		"beers":       &staged.Beers,
		"managers":    &staged.Managers,
	}
	var hashParts []string
	for _, section := range sectionOrder {
		rows, err := t.fetchRange(ctx, sheetRanges[section])
		if err != nil {
			return nil, err
		}
		*sectionDest[section] = rowsToObjectConfigs(rows)
		for _, row := range rows {
			hashParts = append(hashParts, strings.Join(row[:], "\x1f"))
		}
	}
	resolveInherit(staged.DataSources, t.bootstrapConfig)
	resolveInherit(staged.Relays, t.bootstrapConfig)

	sum := sha256.Sum256([]byte(strings.Join(hashParts, "\x1e")))
	staged.Version = hex.EncodeToString(sum[:])
	return staged, nil
}

// Load stages a fresh ConfigSpec from the four sheets and validates it
// wholly before returning; a failure anywhere leaves the previous state
// of this Store untouched.
func (t *TabularSheet) Load(ctx context.Context) (*ConfigSpec, error) {
	staged, err := t.stageSpec(ctx)
	if err != nil {
		return nil, err
	}
	if err := staged.Validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.lastHash = staged.Version
	t.mu.Unlock()

	return staged, nil
}

// HasChanged re-reads the four sheets and compares a content hash against
// the last loaded version, without requiring an extra Drive API scope or
// client to watch a change token.
func (t *TabularSheet) HasChanged(ctx context.Context) (bool, error) {
	staged, err := t.stageSpec(ctx)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return staged.Version != t.lastHash, nil
}
