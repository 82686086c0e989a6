package services

import (
	"diagramgen/internal/domain/models"
)

// ProviderRegistry defines operations on the configured provider records.
// Reads return copies; writes are atomic with respect to readers.
type ProviderRegistry interface {
	// ListEnabledOrdered returns enabled records by ascending priority, ties by insertion order
	ListEnabledOrdered() []models.ProviderRecord

	// ListAll returns every record in the same order, including disabled ones
	ListAll() []models.ProviderRecord

	// Get retrieves a record by ID
	Get(id string) (*models.ProviderRecord, error)

	// Create adds a non-system record
	Create(req *models.CreateProviderRequest) (*models.ProviderRecord, error)

	// Update applies a partial update; system records only accept enabled
	Update(id string, update *models.ProviderUpdate) (*models.ProviderRecord, error)

	// Delete removes a non-system record
	Delete(id string) error
}
