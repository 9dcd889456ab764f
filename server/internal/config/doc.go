// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort             — port for the API, metrics and stream (default 3000, $PORT overrides)
//   - Banner               — body of GET / (default "Conversion and Moving Average API")
//   - LogLevel             — debug | info | warn | error (default info)
//   - ShutdownTimeout      — graceful shutdown bound (default 10s)
//   - Auth.Mode            — "apikey" or "none"
//   - Auth.KeyEnv          — environment variable holding the expected API key
//   - Auth.Header          — HTTP header name (default "x-api-key")
//   - Stream.DefaultWindow — window used when a client does not ask for one (default 5)
//   - Stream.MaxWindow     — largest window a client may ask for (default 1000)
//   - Stream.Heartbeat     — heartbeat broadcast interval (default 30s)
//
// Load(path) applies defaults before unmarshalling, then $PORT, then validates.
// Default() does the same without a file. Watch(ctx, path, fn) reloads on write.
package config
