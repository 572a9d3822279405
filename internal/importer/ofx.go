package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
)

// OFXParser parses OFX/QFX bank and credit card statements with a
// stateless design. Each method operates solely on the input data
// provided, making the parser safe for concurrent use without locking.
type OFXParser struct{}

var ofxInstance = &OFXParser{}

// NewOFXParser returns the shared OFX parser instance
func NewOFXParser() *OFXParser {
	return ofxInstance
}

// Name returns the parser identifier
func (p *OFXParser) Name() string {
	return "ofx"
}

// CanParse checks extension and header markers for both OFX v1 SGML and
// v2 XML formats
func (p *OFXParser) CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}

	headerUpper := strings.ToUpper(string(header))
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

// Parse extracts expenses from an OFX/QFX statement. Debits become
// expenses with the absolute amount; credits are skipped because revenue
// is tracked per month, not per transaction. Statement vendor comes from
// the transaction name and the description from the memo.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader, meta *Metadata) (*Batch, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content%s: %w", fileInfo(meta), err)
	}

	// ofxgo.ParseResponse does not support cancellation, so this check
	// only catches cancellation between file read and parsing
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file%s (%d bytes): %w", fileInfo(meta), len(content), err)
	}

	var tranLists []*ofxgo.TransactionList
	for _, msg := range response.CreditCard {
		if ccStmt, ok := msg.(*ofxgo.CCStatementResponse); ok && ccStmt.BankTranList != nil {
			tranLists = append(tranLists, ccStmt.BankTranList)
		}
	}
	for _, msg := range response.Bank {
		if bankStmt, ok := msg.(*ofxgo.StatementResponse); ok && bankStmt.BankTranList != nil {
			tranLists = append(tranLists, bankStmt.BankTranList)
		}
	}

	if len(tranLists) == 0 {
		return nil, fmt.Errorf("no supported statement type found in OFX file%s (creditcard: %d, bank: %d)",
			fileInfo(meta), len(response.CreditCard), len(response.Bank))
	}

	batch := &Batch{}
	for _, list := range tranLists {
		for i, txn := range list.Transactions {
			expense, err := extractExpense(txn)
			if err != nil {
				return nil, fmt.Errorf("failed to parse transaction at index %d%s: %w", i, fileInfo(meta), err)
			}
			if expense != nil {
				batch.Expenses = append(batch.Expenses, *expense)
			}
		}
	}

	return batch, nil
}

// extractExpense converts one OFX transaction into an expense. Returns
// (nil, nil) for credits and zero-amount entries.
func extractExpense(txn ofxgo.Transaction) (*domain.Expense, error) {
	id := txn.FiTID.String()
	if id == "" {
		return nil, fmt.Errorf("transaction missing required ID field")
	}

	amount, _ := txn.TrnAmt.Float64()
	if amount >= 0 {
		// Credit or zero; not an expense
		return nil, nil
	}

	date := txn.DtPosted.Time
	if date.IsZero() {
		date = txn.DtUser.Time
	}
	if date.IsZero() {
		return nil, fmt.Errorf("transaction %s missing both posted date and user date", id)
	}

	vendor := strings.TrimSpace(txn.Name.String())
	description := strings.TrimSpace(txn.Memo.String())
	if description == "" {
		description = vendor
	}
	if description == "" {
		return nil, fmt.Errorf("transaction %s missing both name and memo fields", id)
	}

	// Classification runs downstream over description and vendor
	return domain.NewExpense(
		"ofx-"+id,
		date.Format("2006-01-02"),
		description,
		vendor,
		-amount,
		domain.CategoryUncategorized,
	)
}
