// Package cli implements the taskflow command tree: run, pcap, plan and
// version. Every command loads configuration through the config package and
// lets the flags it was given override file and environment values.
package cli
