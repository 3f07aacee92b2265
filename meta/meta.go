// meta/meta.go
package meta

import "time"

// FIRST_RAID_DELAY is how long after startup the first raid fires.
const FIRST_RAID_DELAY = 5 * time.Second

// RAID_INTERVAL is the time between two raids (4 hours).
const RAID_INTERVAL = 14400 * time.Second

// TRAVEL_DELAY is how long each attacker takes to reach the base.
const TRAVEL_DELAY = 3 * time.Second

const MIN_ATTACKERS = 1
const MAX_ATTACKERS = 5

// ATTACKER_NAMES is the roster attackers are drawn from.
var ATTACKER_NAMES = []string{"Raider1", "Raider2", "Raider3", "Raider4", "Raider5"}
