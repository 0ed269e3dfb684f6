// Package discovery finds a device on the network.
//
// A CandidateSource builds the list of base URLs worth probing: addresses
// that answered before, the device's access point, a sweep of the local /24
// and an optional fixed Wi-Fi address. The remote relay is kept aside and
// only probed when no local candidate answers.
//
// A Resolver probes candidates concurrently with GET <candidate>socket/address
// and returns the first answer, tagged Reachable or LoginRequired.
package discovery
