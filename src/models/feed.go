package models

// -----------------------------------------------------------------------------
// Live feed messages pushed over /ws
// -----------------------------------------------------------------------------

type MFeedMessage struct {
	Type         string         `json:"type"` // "INITIAL" or "TRADE"
	Transactions []MTransaction `json:"transactions,omitempty"`
	Transaction  *MTransaction  `json:"transaction,omitempty"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Stocks  []string `json:"stocks"`
}
