/*
Package monitoring collects Prometheus metrics for the virtual filesystem.

# Metrics

  - vfs_mounts_active: mounts currently in the table
  - vfs_mount_operations_total{op,result}: mount and unmount attempts
  - vfs_bytes_read_total / vfs_bytes_written_total: file payload traffic
  - vfs_identity_changes_total{result}: identity swaps
  - vfs_open_handles: file handles not yet closed
  - vfs_operation_duration_seconds{op}: latency of filesystem calls

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	timer := monitoring.NewTimer(metrics, "read")
	// ... perform operation ...
	timer.Stop()

A nil *Metrics is valid and records nothing.
*/
package monitoring
