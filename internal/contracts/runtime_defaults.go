package contracts

import "time"

const (
	DefaultBaseURL      = "https://issuetracker.google.com/action"
	DefaultSiteURL      = "https://issuetracker.google.com"
	DefaultConfigDir    = "buganize"
	DefaultConfigFile   = "config.toml"
	DefaultCacheFile    = "cache.db"
	DefaultExportPrefix = "buganize"
)

const (
	DefaultPageSize         = 25
	DefaultBatchSize        = 100
	DefaultConcurrency      = 4
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseBackoff = 500 * time.Millisecond
	DefaultRetryMaxBackoff  = 10 * time.Second
	DefaultUpdateCheckTTL   = time.Hour
	DefaultUpdateTimeout    = 3 * time.Second
	DefaultLogLevel         = "warn"
	DefaultLogFormat        = "text"
)

// AllowedPageSizes are the only page sizes the search endpoint honours.
var AllowedPageSizes = []int{25, 50, 100, 250}

func IsAllowedPageSize(size int) bool {
	for _, allowed := range AllowedPageSizes {
		if size == allowed {
			return true
		}
	}
	return false
}

type CommandName string

const (
	CommandSearch   CommandName = "search"
	CommandIssue    CommandName = "issue"
	CommandIssues   CommandName = "issues"
	CommandComments CommandName = "comments"
	CommandUpdates  CommandName = "updates"
	CommandTrackers CommandName = "trackers"
)

type NetworkRequirement string

const (
	NetworkRequirementNone     NetworkRequirement = "none"
	NetworkRequirementRequired NetworkRequirement = "required"
)

// CommandNetworkPolicy records which commands talk to the tracker API.
var CommandNetworkPolicy = map[CommandName]NetworkRequirement{
	CommandSearch:   NetworkRequirementRequired,
	CommandIssue:    NetworkRequirementRequired,
	CommandIssues:   NetworkRequirementRequired,
	CommandComments: NetworkRequirementRequired,
	CommandUpdates:  NetworkRequirementRequired,
	CommandTrackers: NetworkRequirementNone,
}

func RequiresNetwork(command CommandName) bool {
	return CommandNetworkPolicy[command] == NetworkRequirementRequired
}
