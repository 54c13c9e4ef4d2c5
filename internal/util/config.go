package util

import "github.com/spf13/viper"

// GetForceRecompute returns whether derived columns are recomputed even when
// they already exist. On by default; --force=false turns it off.
func GetForceRecompute() bool {
	if !viper.IsSet("force") {
		return true
	}
	return viper.GetBool("force")
}

// GetCommitChanges returns whether the run is persisted. A dry run
// (--dry-run) discards every change when the handle is released.
func GetCommitChanges() bool {
	return !viper.GetBool("dry-run")
}

// GetVacuum returns whether the archive is compacted after a commit
func GetVacuum() bool {
	return !viper.GetBool("no-vacuum")
}
