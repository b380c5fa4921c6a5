// File: task/drive.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"sync"
	"time"

	"code.hybscloud.com/iox"
)

var driveCfg = struct {
	sync.RWMutex
	base, ceiling time.Duration
}{base: 50 * time.Microsecond, ceiling: 10 * time.Millisecond}

// SetDriveBackoff tunes how often Get re-polls a suspended task.
// Non-positive values keep the current setting.
func SetDriveBackoff(base, ceiling time.Duration) {
	driveCfg.Lock()
	defer driveCfg.Unlock()
	if base > 0 {
		driveCfg.base = base
	}
	if ceiling > 0 {
		driveCfg.ceiling = ceiling
	}
	if driveCfg.ceiling < driveCfg.base {
		driveCfg.ceiling = driveCfg.base
	}
}

// DriveBackoff returns the current re-poll bounds.
func DriveBackoff() (base, ceiling time.Duration) {
	driveCfg.RLock()
	defer driveCfg.RUnlock()
	return driveCfg.base, driveCfg.ceiling
}

func drive(co *Co, done, stop <-chan struct{}) {
	var b iox.Backoff
	base, ceiling := DriveBackoff()
	b.SetBase(base)
	b.SetMax(ceiling)
	for {
		select {
		case <-done:
			return
		case <-stop:
			return
		default:
		}
		co.poke()
		b.Wait()
	}
}
