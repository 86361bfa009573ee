package main

import (
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
	"github.com/lite-lake/infra-regsync/internal/interfaces/cli"
)

func main() {
	logger.Init(logger.ConfigFromEnv())
	cli.Execute()
}
