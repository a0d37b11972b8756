// Package realtime implements the chat socket gateway: the connection
// authenticator, the presence registry, room membership tracking and the
// event relay that fans client events out to rooms and private recipients.
//
// All registry and membership state is owned by a single Hub goroutine, so
// mutations triggered by different sockets are applied one at a time and
// events within a room are delivered in the order the hub processed them.
package realtime
