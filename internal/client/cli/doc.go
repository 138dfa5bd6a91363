// Package cli implements relayctl, the operator command-line tool.
//
// Commands:
//   - hash-credential: reads a trusted-client credential without echo and
//     prints the argon2id hash to register with the session authority.
//   - gen-key: prints a random hex key suitable for the relay token secret.
//   - upload: streams a local file through the gateway and prints the id of
//     the stored record.
//
// App.Run dispatches on the first argument and returns an error for the
// caller to report.
package cli
