package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boddenberg/finml/internal/domain"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// statementTxn is the part of an OFX transaction finmlctl uses.
type statementTxn struct {
	Date   time.Time
	Name   string
	Amount decimal.Decimal // negative for debits
}

func readOFXFile(path string) ([]statementTxn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseOFX(f)
}

// parseOFX collects the transactions of every bank and credit card statement.
func parseOFX(r io.Reader) ([]statementTxn, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var txns []statementTxn
	collect := func(list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, tx := range list.Transactions {
			txns = append(txns, convertTxn(tx))
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			collect(stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			collect(stmt.BankTranList)
		}
	}
	return txns, nil
}

func convertTxn(tx ofxgo.Transaction) statementTxn {
	name := string(tx.Name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = string(tx.Payee.Name)
	}
	if name == "" {
		name = string(tx.Memo)
	}
	return statementTxn{
		Date:   tx.DtPosted.Time,
		Name:   name,
		Amount: decimal.NewFromBigRat(&tx.TrnAmt.Rat, 2),
	}
}

// spendingHistory turns debits into positive expense records. Credits are
// income and are skipped.
func spendingHistory(txns []statementTxn) []domain.HistoricalExpense {
	history := make([]domain.HistoricalExpense, 0, len(txns))
	for _, tx := range txns {
		if !tx.Amount.IsNegative() {
			continue
		}
		history = append(history, domain.NewHistoricalExpense(tx.Date, tx.Amount.Neg()))
	}
	return history
}
