package enums

import (
	"fmt"
	"strings"
)

// AuctionStatus mirrors the auction_status enum in the auction and search databases.
type AuctionStatus string

const (
	AuctionStatusLive          AuctionStatus = "live"
	AuctionStatusReserveNotMet AuctionStatus = "reserve_not_met"
	AuctionStatusFinished      AuctionStatus = "finished"
)

var validAuctionStatuses = []AuctionStatus{
	AuctionStatusLive,
	AuctionStatusReserveNotMet,
	AuctionStatusFinished,
}

func (s AuctionStatus) String() string {
	return string(s)
}

func (s AuctionStatus) IsValid() bool {
	for _, candidate := range validAuctionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAuctionStatus converts raw input into AuctionStatus.
func ParseAuctionStatus(value string) (AuctionStatus, error) {
	for _, candidate := range validAuctionStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auction status %q", value)
}

// FinishedStatus is the terminal status recorded once an auction closes.
func FinishedStatus(itemSold bool) AuctionStatus {
	if itemSold {
		return AuctionStatusFinished
	}
	return AuctionStatusReserveNotMet
}
