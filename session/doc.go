// Package session tracks one user's playlist editing session.
//
// A Session moves through three states:
//
//	NoActivePlaylist --Begin--> Building --Commit--> Refining
//	       ^                       |                    |
//	       +-------Abort-----------+                    |
//	       +-------Reset--------------------------------+
//
// While Refining, every refinement text is appended to the original vibe
// and the committed track IDs form the exclusion set of the next
// recommendation. Removing a track makes it eligible again.
//
// A Session is a plain value without locking; it belongs to a single user.
// Stores persist sessions between requests.
package session
