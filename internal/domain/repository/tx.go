package repository

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Stock           StockRepository
	Movements       MovementRepository
	Ranges          NumberingRangeRepository
	Sales           SaleRepository
	CreditNotes     CreditNoteRepository
	Till            TillRepository
	IntegrationLogs IntegrationLogRepository
}
