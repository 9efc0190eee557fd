/*
Package config loads the topology registry and resolves management
credentials.

The topology file is YAML, validated structurally (go-playground/validator)
and semantically: exactly one upstream cluster, at least one downstream,
unique cluster IDs. The loaded registry is immutable; every component
receives the same *types.Topology by reference.

Credentials resolve with the precedence flag > environment variable >
interactive terminal prompt. All failures here are types.ConfigError,
which is the only error class that aborts a run outright.
*/
package config
