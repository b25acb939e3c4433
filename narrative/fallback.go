package narrative

import "context"

// Fallback is the rule-based generator used when no LLM provider is
// configured and whenever a provider call fails. It never errors.
type Fallback struct{}

// Summarize derives a basic insight from trend thresholds.
func (Fallback) Summarize(_ context.Context, m Metrics) (string, error) {
	return FallbackInsight(m), nil
}

// FallbackInsight picks a canned insight from the most telling trend. The
// thresholds are heuristic: double-digit YoY revenue moves dominate, then
// expense growth outpacing revenue by more than 5 points, then strong MoM
// profit momentum.
func FallbackInsight(m Metrics) string {
	switch {
	case m.RevenueYoY > 10:
		return "Strong revenue growth YoY, monitor expense efficiency."
	case m.RevenueYoY < -10:
		return "Revenue declining YoY, focus on growth initiatives."
	case m.ExpensesYoY > m.RevenueYoY+5:
		return "Expenses growing faster than revenue, cost control needed."
	case m.ProfitMoM > 15:
		return "Strong profit growth MoM, good operational momentum."
	default:
		return "Performance steady, opportunities for optimization."
	}
}
