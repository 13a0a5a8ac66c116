// Package analysis runs the cleaning and profiling pipeline for uploaded
// files and tracks the lifecycle of each analysis.
package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csv-profiler/backend/internal/clean"
	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
	"github.com/csv-profiler/backend/internal/plot"
	"github.com/csv-profiler/backend/internal/preview"
	"github.com/csv-profiler/backend/internal/report"
	"github.com/csv-profiler/backend/internal/stats"
	"github.com/csv-profiler/backend/internal/storage"
)

// KeepAliveWindow is how long recently accessed analyses survive cleanup.
const KeepAliveWindow = 5 * time.Minute

// State holds one analysis plus its preview store and output location.
type State struct {
	Analysis     *models.Analysis
	Preview      *preview.Store
	OutputDir    string
	BundlePath   string
	Summary      *Summary
	LastAccessed time.Time
}

// Summary bundles everything the results page needs about a completed
// analysis.
type Summary struct {
	Dataset     models.DatasetSummary       `json:"dataset"`
	Numeric     []models.NumericProfile     `json:"numeric,omitempty"`
	Categorical []models.CategoricalProfile `json:"categorical,omitempty"`
	Correlation *stats.CorrelationMatrix    `json:"correlation,omitempty"`
}

// Manager owns all active analyses.
type Manager struct {
	mu       sync.RWMutex
	analyses map[string]*State
	store    storage.Store
	cfg      *config.Config
}

// NewManager creates an analysis manager.
func NewManager(store storage.Store, cfg *config.Config) *Manager {
	return &Manager{
		analyses: make(map[string]*State),
		store:    store,
		cfg:      cfg,
	}
}

// Start begins an analysis for an uploaded file. The pipeline runs in a
// background goroutine; callers poll status or subscribe to progress.
func (m *Manager) Start(fileID string) (*models.Analysis, error) {
	info, err := m.store.Get(fileID)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", fileID)
	}
	filePath, err := m.store.GetFilePath(fileID)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", fileID)
	}

	m.reapIfAtCapacity()

	id := uuid.New().String()
	a := models.NewAnalysis(id, fileID)
	a.FileName = info.Name
	a.Status = models.AnalysisStatusRunning
	a.Stage = "loading"

	m.mu.Lock()
	m.analyses[id] = &State{Analysis: a, LastAccessed: time.Now()}
	m.mu.Unlock()

	go m.run(id, filePath, info.Name)

	return a, nil
}

func (m *Manager) run(id, filePath, fileName string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Analysis %s] PANIC recovered: %v\n", short(id), r)
			m.fail(id, "pipeline", fmt.Sprintf("analysis panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Analysis %s] Starting analysis of %s\n", short(id), fileName)

	// Stage 1: load.
	f, err := os.Open(filePath)
	if err != nil {
		m.fail(id, "load", fmt.Sprintf("opening uploaded file: %v", err))
		return
	}
	ds, err := dataset.Load(f, fileName, m.cfg.Pipeline.MissingMarkers)
	f.Close()
	if err != nil {
		m.fail(id, "load", err.Error())
		return
	}
	m.progress(id, 20, "cleaning", func(a *models.Analysis) {
		a.RowCount = ds.Rows
		a.ColumnCount = len(ds.Columns)
	})
	fmt.Printf("[Analysis %s] Loaded %d rows x %d columns\n", short(id), ds.Rows, len(ds.Columns))

	// Stage 2: clean.
	cleaned := clean.Run(ds, m.cfg.Pipeline)
	m.progress(id, 50, "profiling", func(a *models.Analysis) {
		a.CleaningActions = len(cleaned.Actions)
	})
	fmt.Printf("[Analysis %s] Cleaning complete: %d actions\n", short(id), len(cleaned.Actions))

	// Stage 3: stats.
	numeric, categorical := stats.Describe(ds, cleaned.Missing, cleaned.Outliers)
	corr := stats.Correlate(ds, m.cfg.Pipeline.CorrelationMinCol)
	summary := ds.Summary()
	m.progress(id, 65, "plotting", nil)

	// Stage 4: report directory and charts.
	w, err := report.NewWriter(m.cfg.Storage.OutputsDir, id)
	if err != nil {
		m.fail(id, "report", err.Error())
		return
	}

	charts, err := plot.Distributions(ds, cleaned.Missing, m.cfg.Pipeline, w.PlotsPath())
	if err != nil {
		// Charts are a best-effort artifact; record but continue.
		fmt.Printf("[Analysis %s] Warning: chart rendering failed: %v\n", short(id), err)
	}
	m.progress(id, 85, "packaging", nil)

	// Stage 5: artifacts and bundle.
	if err := m.writeArtifacts(w, filePath, ds, cleaned, summary, numeric, categorical, corr); err != nil {
		m.fail(id, "report", err.Error())
		return
	}

	bundleName, err := w.Zip(id)
	if err != nil {
		m.fail(id, "bundle", err.Error())
		return
	}

	artifacts, err := w.Artifacts()
	if err != nil {
		m.fail(id, "report", err.Error())
		return
	}

	// Stage 6: preview store for the results page.
	pv, err := preview.NewStore(m.cfg.Storage.TempDir, id, ds)
	if err != nil {
		// The bundle is already complete; results just lose row preview.
		fmt.Printf("[Analysis %s] Warning: preview store unavailable: %v\n", short(id), err)
	}

	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.analyses[id]
	if !ok {
		if pv != nil {
			pv.Close()
		}
		return
	}

	state.Preview = pv
	state.Summary = &Summary{
		Dataset:     summary,
		Numeric:     numeric,
		Categorical: categorical,
		Correlation: corr,
	}
	state.OutputDir = w.Dir()
	state.BundlePath = filepath.Join(filepath.Dir(w.Dir()), bundleName)
	state.Analysis.Status = models.AnalysisStatusComplete
	state.Analysis.Progress = 100
	state.Analysis.Stage = "complete"
	state.Analysis.ProcessingTimeMs = elapsed
	state.Analysis.Artifacts = artifacts
	state.Analysis.Charts = charts
	state.Analysis.BundleName = bundleName

	fmt.Printf("[Analysis %s] Complete in %dms: %d artifacts, %d charts\n",
		short(id), elapsed, len(artifacts), len(charts))
}

func (m *Manager) writeArtifacts(w *report.Writer, filePath string, ds *dataset.Dataset, cleaned *clean.Result, summary models.DatasetSummary, numeric []models.NumericProfile, categorical []models.CategoricalProfile, corr *stats.CorrelationMatrix) error {
	if err := w.CopyOriginal(filePath); err != nil {
		return err
	}
	if err := w.WriteCleaned(ds); err != nil {
		return err
	}
	if err := w.WriteNumericSummary(numeric); err != nil {
		return err
	}
	if err := w.WriteCategoricalSummary(categorical); err != nil {
		return err
	}
	if err := w.WriteCorrelation(corr); err != nil {
		return err
	}
	if err := w.WriteCleaningLog(cleaned.Actions); err != nil {
		return err
	}
	if err := w.WriteSummaryReport(summary, numeric, categorical, len(cleaned.Actions)); err != nil {
		return err
	}
	if err := w.WriteWorkbook(summary, numeric, categorical); err != nil {
		return err
	}
	return nil
}

func (m *Manager) progress(id string, pct float64, stage string, update func(*models.Analysis)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.analyses[id]
	if !ok {
		return
	}
	state.Analysis.Progress = pct
	state.Analysis.Stage = stage
	if update != nil {
		update(state.Analysis)
	}
}

func (m *Manager) fail(id, stage, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.analyses[id]
	if !ok {
		return
	}
	state.Analysis.Status = models.AnalysisStatusError
	state.Analysis.Stage = stage
	state.Analysis.Errors = append(state.Analysis.Errors, models.AnalysisError{
		Stage:  stage,
		Reason: reason,
	})
	fmt.Printf("[Analysis %s] ERROR in %s: %s\n", short(id), stage, reason)
}

// Get returns a snapshot of an analysis by ID. The pipeline goroutine keeps
// mutating the live record under the manager lock, so callers get a copy they
// can encode without holding it.
func (m *Manager) Get(id string) (*models.Analysis, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.analyses[id]
	if !ok {
		return nil, false
	}
	a := *state.Analysis
	return &a, true
}

// GetSummary returns the profiling summary of a completed analysis.
func (m *Manager) GetSummary(id string) (*Summary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.analyses[id]
	if !ok || state.Summary == nil {
		return nil, false
	}
	return state.Summary, true
}

// Count returns the number of analyses currently tracked, running or done.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.analyses)
}

// Touch updates the last-accessed timestamp so active analyses survive
// background cleanup.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.analyses[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// OutputDir returns the artifact directory of a completed analysis.
func (m *Manager) OutputDir(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.analyses[id]
	if !ok || state.OutputDir == "" {
		return "", false
	}
	return state.OutputDir, true
}

// BundlePath returns the ZIP archive path of a completed analysis.
func (m *Manager) BundlePath(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.analyses[id]
	if !ok || state.BundlePath == "" {
		return "", false
	}
	return state.BundlePath, true
}

// Rows returns one page of cleaned rows from the preview store.
func (m *Manager) Rows(ctx context.Context, id string, page, pageSize int) ([]string, [][]string, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.analyses[id]
	if !ok || state.Preview == nil {
		return nil, nil, 0, false
	}

	rows, total, err := state.Preview.Rows(ctx, page, pageSize)
	if err != nil {
		fmt.Printf("[Analysis %s] Rows query error: %v\n", short(id), err)
		return nil, nil, 0, false
	}
	return state.Preview.Columns(), rows, total, true
}

// DistinctCounts returns per-column distinct value counts from the preview
// store.
func (m *Manager) DistinctCounts(ctx context.Context, id string) (map[string]int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.analyses[id]
	if !ok || state.Preview == nil {
		return nil, false
	}

	counts, err := state.Preview.DistinctCounts(ctx)
	if err != nil {
		return nil, false
	}
	return counts, true
}

// Delete removes an analysis and all its artifacts.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.analyses[id]
	if !ok {
		return false
	}
	m.release(id, state)
	return true
}

// CleanupOld removes completed or failed analyses older than maxAge, keeping
// ones accessed within KeepAliveWindow.
func (m *Manager) CleanupOld(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-KeepAliveWindow)

	for id, state := range m.analyses {
		if state.Analysis.Status != models.AnalysisStatusComplete &&
			state.Analysis.Status != models.AnalysisStatusError {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			m.release(id, state)
			fmt.Printf("[Manager] Cleaned up aged analysis %s\n", short(id))
		}
	}
}

// reapIfAtCapacity removes the oldest finished analyses when at the
// configured concurrency cap.
func (m *Manager) reapIfAtCapacity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	max := m.cfg.Processing.MaxConcurrentAnalyses
	if max <= 0 || len(m.analyses) < max {
		return
	}

	toFree := len(m.analyses) - max + 1
	for id, state := range m.analyses {
		if toFree == 0 {
			break
		}
		if state.Analysis.Status == models.AnalysisStatusComplete ||
			state.Analysis.Status == models.AnalysisStatusError {
			m.release(id, state)
			toFree--
			fmt.Printf("[Manager] Reaped finished analysis %s to free capacity\n", short(id))
		}
	}
}

// release frees all resources of an analysis. Caller holds the lock.
func (m *Manager) release(id string, state *State) {
	if state.Preview != nil {
		state.Preview.Close()
	}
	if state.OutputDir != "" {
		os.RemoveAll(state.OutputDir)
	}
	if state.BundlePath != "" {
		os.Remove(state.BundlePath)
	}
	delete(m.analyses, id)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
