// Package ldfilewatch allows the LightDeck client to read feature flag data from a file, with
// automatic reloading. It should be used in conjunction with the ldfiledata package. The two
// packages are separate so as to avoid bringing additional dependencies for users who do not
// need automatic reloading.
package ldfilewatch
