package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardledger/mtg-tracker/internal/metrics"
	"github.com/cardledger/mtg-tracker/internal/models"
	"github.com/cardledger/mtg-tracker/internal/state"
)

// DailyParams configures one daily append-detect-report run.
type DailyParams struct {
	CollectionPath     string
	AllPricesTodayPath string
	ReportsDir         string
	// SeedStatePath is the fallback snapshot used when the backend holds no
	// state yet (first daily run after seeding).
	SeedStatePath string

	Selector  PriceSelector
	StateDays int

	Windows      []int
	PriceFloor   float64
	PctThreshold float64
	AbsMin       float64
	PctOverride  float64

	Today time.Time
}

// DailyResult reports what a daily run computed and where it wrote reports.
type DailyResult struct {
	TodayDate   string
	TodayRows   int
	StateRows   int
	Detail      []models.SpikeRow
	Summary     []models.SpikeRow
	Markdown    string
	ReportPaths []string
	Meta        *models.RunMeta
}

// DailyService runs the daily pipeline against a state backend.
type DailyService struct {
	backend state.Backend
}

func NewDailyService(backend state.Backend) *DailyService {
	return &DailyService{backend: backend}
}

// RunDaily executes one daily cycle: extract today's prices for the owned
// cards, merge them into the rolling state, truncate to the retention
// window, detect spikes, then persist state and reports. All computation
// happens before the first write, so a failed run leaves the prior state
// untouched.
func (s *DailyService) RunDaily(ctx context.Context, params DailyParams) (*DailyResult, error) {
	started := time.Now()
	result, err := s.runDaily(ctx, params)
	metrics.DailyRunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.DailyRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DailyRunsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

func (s *DailyService) runDaily(ctx context.Context, params DailyParams) (*DailyResult, error) {
	todayDate := params.Today.UTC().Format(models.DateLayout)

	collection, err := LoadCollection(params.CollectionPath)
	if err != nil {
		return nil, err
	}
	keys := models.CollectionKeys(collection)
	if len(keys) == 0 {
		return nil, fmt.Errorf("collection %s has no usable rows", params.CollectionPath)
	}
	qty := models.QuantityByKey(collection)
	metrics.CollectionKeys.Set(float64(len(keys)))
	totalQty := 0
	for _, n := range qty {
		totalQty += n
	}
	metrics.CollectionQuantity.Set(float64(totalQty))

	priorRows, priorMeta, err := s.loadPrior(ctx, params.SeedStatePath)
	if err != nil {
		return nil, err
	}
	if priorMeta != nil {
		logrus.Debugf("Prior state from run %s (%s), %d rows", priorMeta.RunID, priorMeta.RunDateUTC, len(priorRows))
	}

	sidToFinishes := make(map[string][]models.Finish, len(keys))
	for _, key := range keys {
		sidToFinishes[key.ScryfallID] = append(sidToFinishes[key.ScryfallID], key.Finish)
	}

	todayRows, err := ExtractTodayPrices(params.AllPricesTodayPath, sidToFinishes, params.Selector, todayDate)
	if err != nil {
		return nil, err
	}
	metrics.TodayPriceRows.Set(float64(len(todayRows)))

	priced := make(map[models.CardKey]struct{}, len(todayRows))
	for _, row := range todayRows {
		priced[row.Key()] = struct{}{}
	}
	var missingPrice []models.CardKey
	for _, key := range keys {
		if _, ok := priced[key]; !ok {
			missingPrice = append(missingPrice, key)
		}
	}
	if len(missingPrice) > 0 {
		logrus.Warnf("%d collection keys have no price for %s, e.g. %v",
			len(missingPrice), todayDate, formatKeyExamples(missingPrice))
	}

	merged := state.Merge(priorRows, todayRows)
	stateRows := state.Truncate(merged, params.StateDays)
	metrics.StateRows.Set(float64(len(stateRows)))
	metrics.StateDistinctDates.Set(float64(len(models.DistinctDates(stateRows))))

	spikeParams := SpikeParams{
		TodayDate:    todayDate,
		Windows:      params.Windows,
		PriceFloor:   params.PriceFloor,
		PctThreshold: params.PctThreshold,
		AbsMin:       params.AbsMin,
		PctOverride:  params.PctOverride,
	}
	detail := DetectSpikes(stateRows, qty, spikeParams)
	summary := BuildSummary(detail)
	markdown := RenderSpikesMarkdown(detail, summary, spikeParams)
	metrics.SpikesDetected.Set(float64(len(detail)))
	metrics.SpikedCards.Set(float64(len(summary)))

	// Computation is done. Everything below is persistence.
	meta := &models.RunMeta{
		RunID:                 uuid.New().String(),
		RunDateUTC:            todayDate,
		Provider:              params.Selector.Provider,
		PriceType:             params.Selector.PriceType,
		Market:                params.Selector.Market,
		StateDays:             params.StateDays,
		NumCollectionKeys:     len(keys),
		NumPricedKeys:         len(priced),
		StateRows:             len(stateRows),
		MissingPriceKeysCount: len(missingPrice),
		MissingKeyExamples: models.MissingKeyExamples{
			MissingPrice: formatKeyExamples(missingPrice),
		},
	}
	if err := s.backend.SaveState(ctx, stateRows, meta); err != nil {
		return nil, err
	}

	reportPaths, err := writeDailyReports(params.ReportsDir, todayDate, detail, summary, markdown)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Daily run %s complete: %d today rows, %d state rows, %d spikes (%d cards)",
		todayDate, len(todayRows), len(stateRows), len(detail), len(summary))

	return &DailyResult{
		TodayDate:   todayDate,
		TodayRows:   len(todayRows),
		StateRows:   len(stateRows),
		Detail:      detail,
		Summary:     summary,
		Markdown:    markdown,
		ReportPaths: reportPaths,
		Meta:        meta,
	}, nil
}

// loadPrior fetches the rolling state from the backend, falling back to the
// seed snapshot when the backend has never been written.
func (s *DailyService) loadPrior(ctx context.Context, seedStatePath string) ([]models.PriceRow, *models.RunMeta, error) {
	rows, meta, err := s.backend.LoadState(ctx)
	if err == nil {
		return rows, meta, nil
	}
	if !errors.Is(err, state.ErrSnapshotNotFound) || seedStatePath == "" {
		return nil, nil, err
	}

	logrus.Infof("No prior state in backend, falling back to seed snapshot %s", seedStatePath)
	rows, seedErr := state.ReadSnapshot(seedStatePath)
	if seedErr != nil {
		return nil, nil, fmt.Errorf("%w (seed fallback %s also failed: %v)", err, seedStatePath, seedErr)
	}
	return rows, nil, nil
}

func writeDailyReports(reportsDir, todayDate string, detail, summary []models.SpikeRow, markdown string) ([]string, error) {
	detailCSV := filepath.Join(reportsDir, fmt.Sprintf("spikes_%s.csv", todayDate))
	summaryCSV := filepath.Join(reportsDir, fmt.Sprintf("spikes_summary_%s.csv", todayDate))
	markdownPath := filepath.Join(reportsDir, fmt.Sprintf("spikes_%s.md", todayDate))
	workbookPath := filepath.Join(reportsDir, fmt.Sprintf("spikes_%s.xlsx", todayDate))

	if err := WriteSpikesCSV(detailCSV, detail, models.SpikeColumns); err != nil {
		return nil, err
	}
	if err := WriteSpikesCSV(summaryCSV, summary, models.SummaryColumns); err != nil {
		return nil, err
	}
	if err := writeTextReport(markdownPath, markdown); err != nil {
		return nil, err
	}
	if err := WriteSpikesWorkbook(workbookPath, detail, summary); err != nil {
		return nil, err
	}
	return []string{detailCSV, summaryCSV, markdownPath, workbookPath}, nil
}
