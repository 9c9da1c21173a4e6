package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// OFXParser parses OFX and QFX statement downloads, bank and credit card.
type OFXParser struct{}

// Format returns the parser name.
func (p *OFXParser) Format() string { return "ofx" }

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// normalize fixes formatting quirks some banks emit that ofxgo rejects.
func normalize(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRe.ReplaceAllString(content, "$1>")
}

// Parse returns one RawActivity per statement transaction. The transaction
// type (DEBIT, CHECK, ...) is carried as a category hint.
func (p *OFXParser) Parse(r io.Reader, fileName string) ([]model.RawActivity, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading OFX: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(normalize(string(content))))
	if err != nil {
		return nil, fmt.Errorf("parsing OFX: %w", err)
	}

	base := filepath.Base(fileName)
	var raws []model.RawActivity
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			raws = appendTransactions(raws, stmt.BankTranList.Transactions, base)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			raws = appendTransactions(raws, stmt.BankTranList.Transactions, base)
		}
	}
	return raws, nil
}

func appendTransactions(raws []model.RawActivity, txns []ofxgo.Transaction, file string) []model.RawActivity {
	for _, tx := range txns {
		raws = append(raws, convertTransaction(tx, file))
	}
	return raws
}

// ofxAmountPrecision keeps every digit an OFX amount can carry.
const ofxAmountPrecision = 16

func convertTransaction(tx ofxgo.Transaction, file string) model.RawActivity {
	amount := decimal.NewNullDecimal(decimal.NewFromBigRat(&tx.TrnAmt.Rat, ofxAmountPrecision))

	desc := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		desc = strings.TrimSpace(string(tx.Payee.Name))
	}
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" {
		desc = strings.TrimSpace(desc + " " + memo)
	}

	var date string
	if !tx.DtPosted.IsZero() {
		date = tx.DtPosted.Format("2006-01-02")
	}

	return model.RawActivity{
		Date:        date,
		Amount:      amount,
		Description: desc,
		File:        file,
		Categories:  []string{tx.TrnType.String()},
	}
}
