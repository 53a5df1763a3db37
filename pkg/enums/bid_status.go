package enums

import (
	"fmt"
	"strings"
)

// BidStatus mirrors the bid_status enum in the bidding database.
type BidStatus string

const (
	BidStatusAccepted             BidStatus = "accepted"
	BidStatusAcceptedBelowReserve BidStatus = "accepted_below_reserve"
	BidStatusTooLow               BidStatus = "too_low"
	BidStatusFinished             BidStatus = "finished"
)

var validBidStatuses = []BidStatus{
	BidStatusAccepted,
	BidStatusAcceptedBelowReserve,
	BidStatusTooLow,
	BidStatusFinished,
}

func (s BidStatus) String() string {
	return string(s)
}

func (s BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLeading reports whether a bid with this status can hold the lead.
func (s BidStatus) IsLeading() bool {
	return s == BidStatusAccepted || s == BidStatusAcceptedBelowReserve
}

// ParseBidStatus converts raw input into BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}

// LeadingBidStatuses lists the statuses a leading bid may hold.
func LeadingBidStatuses() []BidStatus {
	return []BidStatus{BidStatusAccepted, BidStatusAcceptedBelowReserve}
}
