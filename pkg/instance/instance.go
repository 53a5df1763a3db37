package instance

import (
	"fmt"
	"os"

	"github.com/angelmondragon/carbidz-backend/pkg/env"
)

// GetID identifies this process for lock ownership and logs. It prefers
// CARBIDZ_INSTANCE_ID and falls back to hostname-pid.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "carbidz"
	}
	return env.Get("CARBIDZ_INSTANCE_ID", fmt.Sprintf("%s-%d", host, os.Getpid()))
}
