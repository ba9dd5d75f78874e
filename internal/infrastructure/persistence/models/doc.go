// Package models contains the GORM models for the SQL cart drivers.
// Domain types stay free of ORM tags; storage code maps between the two.
package models
