// Package output provides styled terminal output for the flarum-cli commands.
//
// # Usage
//
//	output.Success("Extension scaffolded")
//	output.Info("Next steps:")
//	output.Step("go mod tidy")
//	output.Warning("Module frontend is disabled, skipping js/")
//	output.Error("Step make:route failed")
//
// # Verbose Mode
//
// Verbose output is off by default. SetVerbose(true) enables Verbose messages
// and raises the structured logger returned by Logger to debug level:
//
//	output.SetVerbose(true)
//	output.Logger().Debug("running step", "step", "handler", "path", "")
//
// # Styling
//
//   - Success: ✅ green bold
//   - Error: ❌ red bold
//   - Warning: ⚠️ yellow
//   - Info: ℹ️ cyan
//   - Step: indented gray
//   - Verbose: 🔍 gray (when enabled)
package output
