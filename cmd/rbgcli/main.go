package main

import (
	"rbgcli/cmd/rbgcli/commands"
	"rbgcli/lib/osutil"
	"rbgcli/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	ctx := osutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "rbgcli")
	if err != nil {
		osutil.Fatal("failed to setup telemetry", err)
	}
	if tel.Live() {
		telemetry.InstrumentPerfStats(ctx)
	}
	defer tel.Shutdown(ctx)

	commands.ExecuteContext(ctx)
}
