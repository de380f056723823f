// Package store provides abstractions for data persistence. It defines the
// storage interfaces the scheduling engine consumes together with the
// sentinel errors implementations map their backend errors onto. Concrete
// implementations live under internal/platform.
package store
