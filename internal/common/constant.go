package common

// PathSeparator delimits segments of a canonical path. Every canonical
// path starts with it.
const PathSeparator = "/"

// NotAvailable is reported by the health surface for a collaborator
// that could not be probed.
const NotAvailable = "Not available"
