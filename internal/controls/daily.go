package controls

import "time"

// DailyTracker accumulates one user's losses and trade count for the
// current UTC day. The gate resets it whenever the wall-clock date changes.
type DailyTracker struct {
	Date          string    `json:"date"`
	TotalLossUSD  float64   `json:"total_loss_usd"`
	TradeCount    int       `json:"trade_count"`
	LastTradeTime time.Time `json:"last_trade_time"`
}

// dailyFor returns the tracker for a user, resetting it on UTC day rollover.
// Caller holds the gate lock.
func (hc *HardControls) dailyFor(userID string) *DailyTracker {
	today := hc.now().UTC().Format("2006-01-02")

	tracker, ok := hc.daily[userID]
	if !ok || tracker.Date != today {
		tracker = &DailyTracker{Date: today}
		hc.daily[userID] = tracker
	}
	return tracker
}

// RecordTrade records an executed trade and its realized loss (zero or
// negative lossUSD means no loss) against the user's daily counters.
func (hc *HardControls) RecordTrade(userID string, lossUSD float64) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	tracker := hc.dailyFor(userID)
	tracker.TradeCount++
	tracker.LastTradeTime = hc.now().UTC()
	if lossUSD > 0 {
		tracker.TotalLossUSD += lossUSD
	}
}

// CheckDailyLossLimit compares the user's accumulated daily loss against a
// caller-supplied threshold.
func (hc *HardControls) CheckDailyLossLimit(userID string, maxLossUSD float64) (bool, string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	tracker := hc.dailyFor(userID)
	if tracker.TotalLossUSD >= maxLossUSD {
		return false, reasonf("daily loss $%.2f at or above limit $%.2f", tracker.TotalLossUSD, maxLossUSD)
	}
	return true, ""
}

// CheckDailyTradeLimit compares the user's trade count against a
// caller-supplied threshold, clamped to the absolute MaxDailyTrades cap.
func (hc *HardControls) CheckDailyTradeLimit(userID string, maxTrades int) (bool, string) {
	if maxTrades <= 0 || maxTrades > MaxDailyTrades {
		maxTrades = MaxDailyTrades
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	tracker := hc.dailyFor(userID)
	if tracker.TradeCount >= maxTrades {
		return false, reasonf("daily trade count %d at limit %d", tracker.TradeCount, maxTrades)
	}
	return true, ""
}

// DailyStats returns a copy of the user's daily tracker
func (hc *HardControls) DailyStats(userID string) DailyTracker {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return *hc.dailyFor(userID)
}
