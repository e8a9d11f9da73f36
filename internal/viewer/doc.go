// Package viewer keeps a client-side replica of the dish catalog in sync with the server.
//
// A Session seeds the Replica with one pull, then applies DISH_UPDATED and ALL_DISHES pushes
// from the live channel. Each time the channel goes live, the first time included, the
// session pulls the catalog again and replays pushes received during that pull. When the
// channel drops it reconnects after a fixed delay.
package viewer
