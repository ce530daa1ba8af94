package state

// debug switches, set from the command line
var (
	DBG_debug             = false
	DBG_log_route_changes = false
	DBG_log_route_table   = false
)
