package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

func TestReporter_SaveRunReport(t *testing.T) {
	dir := t.TempDir()
	reporter := NewReporter(dir)

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	results := []models.FetchResult{
		{ItemID: "1", Title: "상품", Price: "12345", Status: models.StatusOK, Attempts: 1},
		models.ExhaustedResult("2", "https://item.gmarket.co.kr/Item?goodscode=2", 3, start),
	}
	report := models.NewRunReport("run-1", models.DefaultFetchConfig(), start, start.Add(time.Minute), results)

	path, err := reporter.SaveRunReport(report)
	if err != nil {
		t.Fatalf("SaveRunReport() error = %v", err)
	}
	if path != filepath.Join(dir, "reports", "run_20240501_090000.json") {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.RunReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("报告不是合法JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Stats.BlockedItems != 1 || decoded.Stats.PricedItems != 1 {
		t.Errorf("报告内容错误: %+v", decoded.Stats)
	}

	latest, err := os.ReadFile(filepath.Join(dir, "reports", "latest_results.json"))
	if err != nil {
		t.Fatal(err)
	}
	var latestResults []models.FetchResult
	if err := json.Unmarshal(latest, &latestResults); err != nil || len(latestResults) != 2 {
		t.Errorf("latest_results.json 内容错误: %v", err)
	}
}
