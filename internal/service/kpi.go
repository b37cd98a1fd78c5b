package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Metric names a figure read out of free-form report data.
type Metric int

const (
	MetricSales Metric = iota
	MetricExpenses
)

// metricKeys lists, per metric, the data keys that may carry it in priority
// order. The first key present decides the value even if it is unusable.
var metricKeys = map[Metric][]string{
	MetricSales:    {"salesToday", "totalSales", "sales", "revenue", "totalRevenue", "grossSales"},
	MetricExpenses: {"expensesToday", "totalExpenses", "expenses", "cost", "totalCost"},
}

// Figures are the metrics of one report or a sum over several.
type Figures struct {
	Sales      float64 `json:"sales"`
	Expenses   float64 `json:"expenses"`
	ProfitLoss float64 `json:"profitLoss"`
}

func (f *Figures) add(data json.RawMessage) {
	fields := decodeFields(data)
	f.Sales += extract(fields, MetricSales)
	f.Expenses += extract(fields, MetricExpenses)
	f.ProfitLoss = f.Sales - f.Expenses
}

// Extract reads metric m from a report's data object. Numbers and numeric
// strings count; every other value, or a non-object document, is 0.
func Extract(data json.RawMessage, m Metric) float64 {
	return extract(decodeFields(data), m)
}

func decodeFields(data json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

func extract(fields map[string]json.RawMessage, m Metric) float64 {
	for _, key := range metricKeys[m] {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		return numeric(raw)
	}
	return 0
}

func numeric(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return 0
	}

	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0
	}
	return n
}
