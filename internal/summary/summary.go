// Package summary derives totals, balances and chart series from a user's
// transactions. Every function is pure and recomputed from scratch.
package summary

import (
	"fmt"
	"sort"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

// Uncategorized is the bucket for expenses without a category.
const Uncategorized = "Sin Categoría"

type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

type AccountBalance struct {
	Account string     `json:"account"`
	Balance core.Money `json:"balance"`
}

type MonthSummary struct {
	Month          string     `json:"month"`
	Income         core.Money `json:"income"`
	Expense        core.Money `json:"expense"`
	Balance        core.Money `json:"balance"`
	IncomePercent  float64    `json:"income_percent"`
	ExpensePercent float64    `json:"expense_percent"`
}

type CategoryAmount struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

type BalancePoint struct {
	Date    core.Date  `json:"date"`
	Balance core.Money `json:"balance"`
}

// Alert is raised when the net balance falls below the user's threshold.
type Alert struct {
	Threshold core.Money `json:"threshold"`
	Net       core.Money `json:"net"`
	Message   string     `json:"message"`
}

type Report struct {
	Totals     Totals           `json:"totals"`
	Accounts   []AccountBalance `json:"accounts"`
	Monthly    []MonthSummary   `json:"monthly"`
	Categories []CategoryAmount `json:"categories"`
	Balance    []BalancePoint   `json:"balance_over_time"`
	Alert      *Alert           `json:"alert,omitempty"`
}

// Build computes every aggregate. A nil threshold disables the alert.
func Build(txs []core.Transaction, threshold *core.Money) Report {
	totals := ComputeTotals(txs)
	return Report{
		Totals:     totals,
		Accounts:   AccountBalances(txs),
		Monthly:    Monthly(txs),
		Categories: CategoryBreakdown(txs),
		Balance:    RunningBalance(txs),
		Alert:      LowBalance(totals.Net, threshold),
	}
}

func ComputeTotals(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		if tx.Type.IsIncome() {
			t.Income = t.Income.Add(tx.Amount)
		} else {
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// AccountBalances returns one balance per account, in first-seen order.
func AccountBalances(txs []core.Transaction) []AccountBalance {
	out := []AccountBalance{}
	index := make(map[string]int)
	for _, tx := range txs {
		i, ok := index[tx.Account]
		if !ok {
			i = len(out)
			index[tx.Account] = i
			out = append(out, AccountBalance{Account: tx.Account})
		}
		out[i].Balance = out[i].Balance.Add(tx.SignedAmount())
	}
	return out
}

// Monthly groups by YYYY-MM, newest month first.
func Monthly(txs []core.Transaction) []MonthSummary {
	byMonth := make(map[string]*MonthSummary)
	for _, tx := range txs {
		key := tx.Date.YearMonth()
		m, ok := byMonth[key]
		if !ok {
			m = &MonthSummary{Month: key}
			byMonth[key] = m
		}
		if tx.Type.IsIncome() {
			m.Income = m.Income.Add(tx.Amount)
		} else {
			m.Expense = m.Expense.Add(tx.Amount)
		}
	}

	out := make([]MonthSummary, 0, len(byMonth))
	for _, m := range byMonth {
		m.Balance = m.Income.Sub(m.Expense)
		m.IncomePercent, m.ExpensePercent = percentages(m.Income, m.Expense)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// percentages splits income and expense into shares of their sum, rounded
// to one decimal. A zero sum yields 0/0.
func percentages(income, expense core.Money) (float64, float64) {
	sum := income.Add(expense).Decimal()
	if !sum.IsPositive() {
		return 0, 0
	}
	hundred := decimal.NewFromInt(100)
	in := income.Decimal().Mul(hundred).Div(sum).Round(1)
	ex := expense.Decimal().Mul(hundred).Div(sum).Round(1)
	return in.InexactFloat64(), ex.InexactFloat64()
}

// CategoryBreakdown sums expenses and investments per category, in
// first-seen order.
func CategoryBreakdown(txs []core.Transaction) []CategoryAmount {
	out := []CategoryAmount{}
	index := make(map[string]int)
	for _, tx := range txs {
		if tx.Type.IsIncome() {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = Uncategorized
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategoryAmount{Category: cat})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// RunningBalance accumulates signed amounts in ascending date order and
// keeps the last cumulative value of each distinct date.
func RunningBalance(txs []core.Transaction) []BalancePoint {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	out := []BalancePoint{}
	var balance core.Money
	for _, tx := range sorted {
		balance = balance.Add(tx.SignedAmount())
		if n := len(out); n > 0 && out[n-1].Date.Equal(tx.Date.Time) {
			out[n-1].Balance = balance
			continue
		}
		out = append(out, BalancePoint{Date: tx.Date, Balance: balance})
	}
	return out
}

// LowBalance returns an alert when threshold is set and net is below it.
func LowBalance(net core.Money, threshold *core.Money) *Alert {
	if threshold == nil || !net.LessThan(*threshold) {
		return nil
	}
	return &Alert{
		Threshold: *threshold,
		Net:       net,
		Message:   fmt.Sprintf("Alerta: Tu balance neto (%s) es menor que el umbral.", net.Display()),
	}
}
