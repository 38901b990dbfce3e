// Package environment describes the runtime environment the engine runs in
// and carries it through context.Context and structured logs.
//
// launchkit uses the environment to decide whether debug-only behaviour, such
// as per-subject flag overrides, is available. Production is a release
// environment; development and staging are not.
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	if env.IsRelease() {
//		// overrides are ignored and rejected
//	}
package environment
