package cachekey

// DashboardSummary holds the cached dashboard counters. Any write that changes
// employee or leave request counts deletes it.
const DashboardSummary = "dashboard:summary"
