package store

import "github.com/darve-social/darve-server/types"

const bucketGatewayTx = "GatewayTransactions"

// SaveGatewayTransaction upserts a gateway transaction.
func (tx *Tx) SaveGatewayTransaction(gt *types.GatewayTransaction) error {
	return tx.bucket(bucketGatewayTx).Save(gt)
}

// GetGatewayTransaction fetches one by ID.
func (tx *Tx) GetGatewayTransaction(id types.ID) (*types.GatewayTransaction, error) {
	var gt types.GatewayTransaction
	if err := tx.bucket(bucketGatewayTx).One("ID", id, &gt); err != nil {
		return nil, wrapNotFound(err)
	}
	return &gt, nil
}

// GetGatewayTransactionByExternalID resolves the rail's reference back to
// our gateway record by its ExternalTxID. The webhook path does not use it;
// it looks records up by gateway transaction ID.
func (tx *Tx) GetGatewayTransactionByExternalID(externalID string) (*types.GatewayTransaction, error) {
	var gt types.GatewayTransaction
	if err := tx.bucket(bucketGatewayTx).One("ExternalTxID", externalID, &gt); err != nil {
		return nil, wrapNotFound(err)
	}
	return &gt, nil
}
