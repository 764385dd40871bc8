// Package voice renders the assistant configuration pushed to the hosted
// voice agent and the telephony webhook URLs that route calls to it.
package voice
