// Package models contains the GORM persistence models. Domain aggregates never
// carry gorm tags; repositories convert with ToDomain / FromDomain.
package models
