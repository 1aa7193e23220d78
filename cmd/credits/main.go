// Command credits is the operator tool for identities, profiles and balances.
package main

import (
	"os"

	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
