// Package trust installs the edge gateway's certificate authority into the
// process trust store before the secure channel is opened.
package trust
