package service

import (
	"encoding/json"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		metric Metric
		want   float64
	}{
		{"number", `{"sales": 120.5}`, MetricSales, 120.5},
		{"numeric string", `{"revenue": " 99 "}`, MetricSales, 99},
		{"priority order", `{"grossSales": 1, "salesToday": 7}`, MetricSales, 7},
		{"first present key wins even when unusable", `{"salesToday": "n/a", "sales": 50}`, MetricSales, 0},
		{"null", `{"sales": null}`, MetricSales, 0},
		{"bool", `{"sales": true}`, MetricSales, 0},
		{"nested object", `{"sales": {"value": 3}}`, MetricSales, 0},
		{"empty string", `{"sales": ""}`, MetricSales, 0},
		{"no key", `{"visitors": 40}`, MetricSales, 0},
		{"not an object", `[1, 2]`, MetricSales, 0},
		{"garbage", `{sales`, MetricSales, 0},
		{"expenses", `{"cost": "12.25", "sales": 4}`, MetricExpenses, 12.25},
		{"negative", `{"totalExpenses": -3}`, MetricExpenses, -3},
		{"overflow", `{"sales": "1e999"}`, MetricSales, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(json.RawMessage(tt.data), tt.metric); got != tt.want {
				t.Fatalf("Extract(%s) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestFiguresAdd(t *testing.T) {
	var f Figures
	f.add(json.RawMessage(`{"salesToday": 100, "expensesToday": 30}`))
	f.add(json.RawMessage(`{"sales": "50", "cost": 70}`))
	if f.Sales != 150 || f.Expenses != 100 || f.ProfitLoss != 50 {
		t.Fatalf("Figures = %+v", f)
	}
}
