package config

import (
	"os"
	"strconv"
)

// BookingConfig carries the platform economics. The platform fee is
// retained per booked seat when a ride completes; the signup grant is the
// only other credit-creation event besides payouts.
type BookingConfig struct {
	PlatformFeeCredits int64
	SignupGrantCredits int64
	MaxSeatsPerBooking int
}

func LoadBookingConfig() *BookingConfig {
	return &BookingConfig{
		PlatformFeeCredits: getEnvAsInt64("PLATFORM_FEE_CREDITS", 2),
		SignupGrantCredits: getEnvAsInt64("SIGNUP_GRANT_CREDITS", 20),
		MaxSeatsPerBooking: getEnvAsInt("MAX_SEATS_PER_BOOKING", 8),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}
