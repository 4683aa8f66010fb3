package automigrate

import (
	"strings"
	"time"

	"github.com/pseudomuto/automigrate/pkg/consts"
)

// NextMigrationID returns the id of an automatic migration created at now.
// Ids have the form YYYYMMDDHHMMSS_auto in UTC and are bumped one second at a
// time until they sort after every timestamped id in applied, so a clock
// running behind the previous writer can not reorder the ledger.
func NextMigrationID(now time.Time, applied []string) string {
	now = now.UTC().Truncate(time.Second)

	for _, id := range applied {
		at, ok := migrationTime(id)
		if ok && !now.After(at) {
			now = at.Add(time.Second)
		}
	}

	return now.Format(consts.MigrationIDTimeFormat) + "_" + consts.AutoMigrationSuffix
}

func migrationTime(id string) (time.Time, bool) {
	prefix, _, _ := strings.Cut(id, "_")
	if len(prefix) != len(consts.MigrationIDTimeFormat) {
		return time.Time{}, false
	}

	at, err := time.Parse(consts.MigrationIDTimeFormat, prefix)
	return at, err == nil
}
