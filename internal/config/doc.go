// Package config loads the scripthub configuration from a YAML file.
//
// Config fields:
//   - Server.Host        : listen host (default "localhost")
//   - Server.Port        : listen port (default 8000)
//   - Server.StaticDir   : directory the editor assets are served from (default ".")
//   - Server.MaxBodyBytes: cap on a save request body (default 10 MiB)
//   - Projects.Dir       : project directory (default "projects"), created at startup
//   - Projects.Extension : extension a file needs to be listed (default ".fountain")
//   - Projects.OpenPolicy: "basename" (default) or "raw"; raw opens ?file=
//     exactly as given, nested paths included
//   - Projects.AtomicWrites: temp file + rename on save (default true)
//   - Log.Level / Log.Format: slog level and handler ("json" or "text")
//
// Load(path, optional) applies defaults before unmarshalling, then validates. Relative
// directories are resolved against the directory holding the config file.
// Watch(ctx, path, onChange) reloads the file whenever it is written.
package config
