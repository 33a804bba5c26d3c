/*
Package queue defines the experiment problems workers solve, as well as an
interface for a Queue to hand them out to workers.

It also provides an in-memory implementation of the Queue interface
*/
package queue
