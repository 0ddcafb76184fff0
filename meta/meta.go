// meta/meta.go
package meta

// ROWS defines the default number of board rows.
const ROWS = 6

// COLS defines the default number of board columns.
const COLS = 7

// DEPTH defines the default total search depth of a machine move.
const DEPTH = 6

// LEVEL defines the default agglomeration level at which tasks are cut.
const LEVEL = 1

// WORKERS defines the default number of in-process workers.
const WORKERS = 8

// CONNECT defines the run length that wins the game.
const CONNECT = 4

// LISTEN defines the default coordinator address.
const LISTEN = ":8080"
