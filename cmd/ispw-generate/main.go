// Command ispw-generate runs a single generate-await invocation from CI
// action inputs (INPUT_* environment variables) and maps the outcome to the
// process exit code.
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mainframe-ci/ispw-generate/internal/inputs"
	"github.com/mainframe-ci/ispw-generate/internal/ispw"
)

const defaultTimeout = 300 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	zlog, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()
	log := zlog.Sugar()

	provider := inputs.EnvProvider{}

	params, err := inputs.BuildParamsFrom(provider)
	if err != nil {
		log.Error(err)
		return 1
	}

	values := inputs.Retrieve(provider, []string{
		inputs.FieldCesURL,
		inputs.FieldCesToken,
		inputs.FieldSrid,
		inputs.FieldRuntimeConfig,
		inputs.FieldChangeType,
		inputs.FieldExecutionStatus,
		inputs.FieldAutoDeploy,
	})

	spec := ispw.GenerateSpec{
		CesURL: values[inputs.FieldCesURL],
		Srid:   values[inputs.FieldSrid],
		Token:  values[inputs.FieldCesToken],
		Params: params,
		Body: ispw.AssembleRequestBody(
			values[inputs.FieldRuntimeConfig],
			values[inputs.FieldChangeType],
			values[inputs.FieldExecutionStatus],
			values[inputs.FieldAutoDeploy],
		),
	}

	timeout := defaultTimeout
	if raw := os.Getenv("INPUT_TIMEOUT_SECONDS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	client := ispw.NewClient(timeout)

	if _, _, err := client.Generate(context.Background(), log, spec); err != nil {
		log.Error(err)
		return 1
	}

	log.Info("The generate completed successfully.")
	return 0
}
