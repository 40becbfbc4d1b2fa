// Package yamlloader is the YAML implementation of the config.Loader
// interface. It accepts the same pipeline model as the HCL adapter in a
// YAML document; run commands and action arguments are parsed as HCL
// template strings so interpolation behaves identically in both formats.
package yamlloader
