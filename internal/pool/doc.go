// Package pool runs long-lived generation workers and hides where they run.
// It is structured into small files by concern:
//
//   - pool.go: Pool type, Register/Start/Stop/StopAll/IsRunning/Reconfigure.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - types.go: WorkerConfig, Generator, SpawnFunc and result types.
//   - errors.go: error types and helpers (IsUnknownWorker, IsNotRunning, ...).
//   - channel.go: Channel and StopSignal primitives shared by both strategies.
//   - runtime.go: the worker loop (spawn once, then serve prompts until stopped).
//   - strategy*.go: thread (goroutine) and process (child OS process) strategies.
//   - wire.go, serve.go: frame codec and the child-side entry point ServeWorker.
//   - dispatch.go: correlation of responses to concurrent Generate callers.
//   - generate.go: Generate/GenerateAsync with queue admission.
//   - status_report.go: Status/Workers reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus collectors.
//
// The spawn capability is always injected: Config.Spawn for the thread strategy
// and the spawn argument of ServeWorker inside a process worker. The pool never
// inspects WorkerConfig contents; it is validated by the spawn capability when
// a worker starts.
package pool
