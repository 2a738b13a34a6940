package sheets

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/Veraticus/adoption-forecast/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "valid oauth config",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
		},
		{
			name: "valid service account config",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
		},
		{
			name: "missing auth",
			config: Config{
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "multiple auth methods",
			config: Config{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name: "invalid batch size",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name: "negative retry attempts",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: -1,
				RetryDelay:    time.Second,
			},
			wantErr: true,
			errMsg:  "retry attempts cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// fakeAPI records calls in memory.
type fakeAPI struct {
	tabs        map[string]int64
	updates     map[string][][]any
	updateErrs  []error
	cleared     []string
	batches     [][]*sheets.Request
	createCalls int
	mu          sync.Mutex
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{tabs: map[string]int64{}, updates: map[string][][]any{}}
}

func (f *fakeAPI) Tabs(context.Context, string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]int64, len(f.tabs))
	for k, v := range f.tabs {
		ids[k] = v
	}
	return ids, nil
}

func (f *fakeAPI) Create(_ context.Context, _, _ string, tabs []string) (string, map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	ids := map[string]int64{}
	for i, name := range tabs {
		ids[name] = int64(i + 1)
		f.tabs[name] = int64(i + 1)
	}
	return "new-sheet", ids, nil
}

func (f *fakeAPI) Batch(_ context.Context, _ string, requests []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, requests)

	resp := &sheets.BatchUpdateSpreadsheetResponse{}
	for _, r := range requests {
		if r.AddSheet == nil {
			resp.Replies = append(resp.Replies, &sheets.Response{})
			continue
		}
		id := int64(100 + len(f.tabs))
		f.tabs[r.AddSheet.Properties.Title] = id
		resp.Replies = append(resp.Replies, &sheets.Response{
			AddSheet: &sheets.AddSheetResponse{Properties: &sheets.SheetProperties{
				Title:   r.AddSheet.Properties.Title,
				SheetId: id,
			}},
		})
	}
	return resp, nil
}

func (f *fakeAPI) Clear(_ context.Context, _, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeAPI) Update(_ context.Context, _, rng string, values [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		return err
	}
	f.updates[rng] = values
	return nil
}

func testRun() *model.Run {
	inputs := &model.Inputs{
		Horizon:          2,
		InitialOwnership: 5,
		Advance:          model.PlanTable{{1, 0, 0, 0, 0}, {2, 0, 0, 0, 0}},
		Delay:            model.PlanTable{{1, 0, 0, 0, 0}, {2, 0, 0, 0, 0}},
		Ratios: []model.PropensityRatios{
			{Preference: 1, Neutral: 0},
			{Preference: 1, Neutral: 0},
		},
	}
	return &model.Run{
		ID:        "run-1",
		Label:     "baseline",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Inputs:    inputs,
		Scenarios: []model.Scenario{
			{Key: model.ScenarioKey{Type: model.EventPositive, Year: 1}, NewPurchases: []int{3, 0}, Cumulative: []int{8, 8}},
			{Key: model.ScenarioKey{Type: model.EventNegative, Year: 1}, NewPurchases: []int{1, 2}, Cumulative: []int{6, 8}},
		},
		Statistics: []model.StatRow{
			{Year: 1, Mean: 7, Min: 6, Max: 8, Std: 1},
			{Year: 2, Mean: 8, Min: 8, Max: 8, Std: 0},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ServiceAccountPath = "/path/to/key.json"
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestWriter_Write_CreatesSpreadsheet(t *testing.T) {
	api := newFakeAPI()
	w := newWriter(api, testConfig(), common.DiscardLogger())

	require.NoError(t, w.Write(context.Background(), testRun()))

	assert.Equal(t, 1, api.createCalls)
	assert.ElementsMatch(t, []string{"'Run'", "'Scenarios'", "'Statistics'"}, api.cleared)

	scenarios := api.updates["'Scenarios'!A1"]
	require.Len(t, scenarios, 3)
	assert.Equal(t, []any{"Scenario", "Year1", "Year2", "EventType", "EventYear"}, scenarios[0])
	assert.Equal(t, []any{"Negative_Year1", 6, 8, "Negative", 1}, scenarios[1])
	assert.Equal(t, []any{"Positive_Year1", 8, 8, "Positive", 1}, scenarios[2])

	stats := api.updates["'Statistics'!A1"]
	require.Len(t, stats, 3)
	assert.Equal(t, []any{1, 7.0, 6, 8, 1.0}, stats[1])

	run := api.updates["'Run'!A1"]
	assert.Contains(t, run, []any{"Run ID", "run-1"})
	assert.Contains(t, run, []any{"Planned purchases", 3})

	require.Len(t, api.batches, 1, "formatting batch")
	assert.Len(t, api.batches[0], 9)
}

func TestWriter_Write_ProductionRun(t *testing.T) {
	api := newFakeAPI()
	cfg := testConfig()
	cfg.EnableFormatting = false
	w := newWriter(api, cfg, common.DiscardLogger())

	run := testutil.NewRunBuilder(t).WithLabel("production").Build()
	run.ID = "prod"
	require.NoError(t, w.Write(context.Background(), run))

	scenarios := api.updates["'Scenarios'!A1"]
	require.Len(t, scenarios, 16)
	assert.Equal(t, []any{"Positive_Year1", 116, 131, 150, 165, 198, "Positive", 1}, scenarios[11])

	stats := api.updates["'Statistics'!A1"]
	require.Len(t, stats, 6)
	assert.Equal(t, 1, stats[1][0])
	assert.InDelta(t, 88.8, stats[1][1], 1e-9)

	run2 := api.updates["'Run'!A1"]
	assert.Contains(t, run2, []any{"Planned purchases", 138})
}

func TestWriter_Write_ClearsWholeTabForLongHorizons(t *testing.T) {
	const horizon = 30
	all := model.PropensityRatios{Preference: 1}
	inputs := &model.Inputs{Horizon: horizon}
	for i := 0; i < horizon; i++ {
		inputs.Advance = append(inputs.Advance, model.PlanRow{1, 0, 0, 0, 0})
		inputs.Delay = append(inputs.Delay, model.PlanRow{1, 0, 0, 0, 0})
		inputs.Ratios = append(inputs.Ratios, all)
	}
	run := testutil.NewRunBuilder(t).WithInputs(inputs).Build()
	run.ID = "long"

	api := newFakeAPI()
	cfg := testConfig()
	cfg.EnableFormatting = false
	w := newWriter(api, cfg, common.DiscardLogger())
	require.NoError(t, w.Write(context.Background(), run))

	assert.Contains(t, api.cleared, "'Scenarios'")
	scenarios := api.updates["'Scenarios'!A1"]
	require.Len(t, scenarios, 3*horizon+1)
	assert.Len(t, scenarios[0], horizon+3)
}

func TestWriter_Write_AddsMissingTabs(t *testing.T) {
	api := newFakeAPI()
	api.tabs[ScenariosTab] = 7

	cfg := testConfig()
	cfg.SpreadsheetID = "existing"
	cfg.EnableFormatting = false
	w := newWriter(api, cfg, common.DiscardLogger())

	require.NoError(t, w.Write(context.Background(), testRun()))

	assert.Equal(t, 0, api.createCalls)
	require.Len(t, api.batches, 1)
	var added []string
	for _, r := range api.batches[0] {
		require.NotNil(t, r.AddSheet)
		added = append(added, r.AddSheet.Properties.Title)
	}
	assert.ElementsMatch(t, []string{RunTab, StatisticsTab}, added)
}

func TestWriter_Write_BatchesRows(t *testing.T) {
	api := newFakeAPI()
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.EnableFormatting = false
	w := newWriter(api, cfg, common.DiscardLogger())

	require.NoError(t, w.Write(context.Background(), testRun()))

	assert.Len(t, api.updates["'Scenarios'!A1"], 2)
	assert.Len(t, api.updates["'Scenarios'!A3"], 1)
}

func TestWriter_Write_RetriesServerErrors(t *testing.T) {
	api := newFakeAPI()
	api.updateErrs = []error{classify(&googleapi.Error{Code: http.StatusServiceUnavailable})}
	w := newWriter(api, testConfig(), common.DiscardLogger())

	require.NoError(t, w.Write(context.Background(), testRun()))
	assert.Len(t, api.updates["'Run'!A1"], 7)
}

func TestWriter_Write_FailsFastOnClientErrors(t *testing.T) {
	api := newFakeAPI()
	api.updateErrs = []error{classify(&googleapi.Error{Code: http.StatusForbidden})}
	w := newWriter(api, testConfig(), common.DiscardLogger())

	err := w.Write(context.Background(), testRun())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Empty(t, api.updates)
}

func TestWriter_Write_RejectsEmptyRun(t *testing.T) {
	w := newWriter(newFakeAPI(), testConfig(), common.DiscardLogger())
	err := w.Write(context.Background(), &model.Run{ID: "x"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.True(t, common.IsRetryable(classify(&googleapi.Error{Code: http.StatusInternalServerError})))
	assert.False(t, common.IsRetryable(classify(&googleapi.Error{Code: http.StatusNotFound})))
	assert.ErrorIs(t, classify(&googleapi.Error{Code: http.StatusTooManyRequests}), common.ErrRateLimit)

	plain := errors.New("network down")
	assert.Equal(t, plain, classify(plain))
}

func TestMockWriter(t *testing.T) {
	m := NewMockWriter()
	var _ RunWriter = m

	require.NoError(t, m.Write(context.Background(), testRun()))
	m.SetWriteError(errors.New("boom"))
	assert.Error(t, m.Write(context.Background(), testRun()))

	calls := m.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.NoError(t, calls[0].Error)
	assert.EqualError(t, calls[1].Error, "boom")
	assert.Equal(t, "run-1", m.LastRun.ID)
}
