// Package memory provides an in memory solana.Client used for testing.
package memory

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

// Method names used for call counting and error injection
const (
	MethodGetAccountInfo                    = "getAccountInfo"
	MethodGetBalance                        = "getBalance"
	MethodGetLatestBlockhash                = "getLatestBlockhash"
	MethodGetMinimumBalanceForRentExemption = "getMinimumBalanceForRentExemption"
	MethodGetSignatureStatuses              = "getSignatureStatuses"
	MethodIsBlockhashValid                  = "isBlockhashValid"
	MethodRequestAirdrop                    = "requestAirdrop"
	MethodSubmitTransaction                 = "sendTransaction"
)

// SubmitHandler decides the outcome of a submitted transaction. A non-nil
// error rejects it at submission. Otherwise the returned status, when
// non-nil, is reported by GetSignatureStatuses.
type SubmitHandler func(txn solana.Transaction) (*solana.SignatureStatus, error)

// Client is an in memory solana.Client. Every GetLatestBlockhash call mints a
// new, valid blockhash. Submitted transactions must be fully and correctly
// signed over a known blockhash and confirm immediately unless a
// SubmitHandler says otherwise.
type Client struct {
	mu sync.Mutex

	accounts    map[string]solana.AccountInfo
	blockhashes map[solana.Blockhash]bool
	statuses    map[solana.Signature]*solana.SignatureStatus
	submitted   []solana.Transaction
	calls       map[string]int
	errors      map[string]error

	nextBlockhash uint64
	onSubmit      SubmitHandler
}

func NewClient() *Client {
	return &Client{
		accounts:    make(map[string]solana.AccountInfo),
		blockhashes: make(map[solana.Blockhash]bool),
		statuses:    make(map[solana.Signature]*solana.SignatureStatus),
		calls:       make(map[string]int),
		errors:      make(map[string]error),
	}
}

// GetAccountInfo implements solana.Client.GetAccountInfo
func (c *Client) GetAccountInfo(account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodGetAccountInfo); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := c.accounts[base58.Encode(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

// GetBalance implements solana.Client.GetBalance
func (c *Client) GetBalance(account ed25519.PublicKey, _ solana.Commitment) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodGetBalance); err != nil {
		return 0, err
	}

	return c.accounts[base58.Encode(account)].Lamports, nil
}

// GetLatestBlockhash implements solana.Client.GetLatestBlockhash
func (c *Client) GetLatestBlockhash(_ solana.Commitment) (solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodGetLatestBlockhash); err != nil {
		return solana.Blockhash{}, err
	}

	c.nextBlockhash++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], c.nextBlockhash)
	hash := solana.Blockhash(sha256.Sum256(seed[:]))

	c.blockhashes[hash] = true
	return hash, nil
}

// GetMinimumBalanceForRentExemption implements solana.Client.GetMinimumBalanceForRentExemption
// using the default rent parameters.
func (c *Client) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodGetMinimumBalanceForRentExemption); err != nil {
		return 0, err
	}

	return RentExemptMinimum(size), nil
}

// GetSignatureStatuses implements solana.Client.GetSignatureStatuses
func (c *Client) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodGetSignatureStatuses); err != nil {
		return nil, err
	}

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		if status, ok := c.statuses[sig]; ok {
			copied := *status
			statuses[i] = &copied
		}
	}
	return statuses, nil
}

// IsBlockhashValid implements solana.Client.IsBlockhashValid
func (c *Client) IsBlockhashValid(hash solana.Blockhash, _ solana.Commitment) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodIsBlockhashValid); err != nil {
		return false, err
	}

	return c.blockhashes[hash], nil
}

// RequestAirdrop implements solana.Client.RequestAirdrop
func (c *Client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.observe(MethodRequestAirdrop); err != nil {
		return solana.Signature{}, err
	}

	c.credit(account, lamports)

	var sig solana.Signature
	copy(sig[:], account)
	binary.LittleEndian.PutUint64(sig[32:], lamports)
	c.statuses[sig] = ConfirmedStatus()
	return sig, nil
}

// SubmitTransaction implements solana.Client.SubmitTransaction
func (c *Client) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := txn.Signature()

	if err := c.observe(MethodSubmitTransaction); err != nil {
		return sig, err
	}

	if !c.blockhashes[txn.Message.RecentBlockhash] {
		return sig, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}
	if err := verifySignatures(txn); err != nil {
		return sig, err
	}
	if _, ok := c.statuses[sig]; ok {
		return sig, solana.NewTransactionError(solana.TransactionErrorAlreadyProcessed)
	}

	status := ConfirmedStatus()
	if c.onSubmit != nil {
		custom, err := c.onSubmit(txn)
		if err != nil {
			return sig, err
		}
		status = custom
	}

	c.submitted = append(c.submitted, txn)
	if status != nil {
		c.statuses[sig] = status
	}
	return sig, nil
}

// SetAccount stores account info for the address.
func (c *Client) SetAccount(account ed25519.PublicKey, info solana.AccountInfo) {
	c.mu.Lock()
	c.accounts[base58.Encode(account)] = info
	c.mu.Unlock()
}

// SetBalance sets the lamport balance of a system owned account, creating it
// when necessary.
func (c *Client) SetBalance(account ed25519.PublicKey, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := c.accounts[base58.Encode(account)]
	info.Lamports = lamports
	if info.Owner == nil {
		info.Owner = make([]byte, ed25519.PublicKeySize)
	}
	c.accounts[base58.Encode(account)] = info
}

// SetError makes every call to method fail with err. A nil err clears it.
func (c *Client) SetError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.errors, method)
		return
	}
	c.errors[method] = err
}

// SetSubmitHandler installs a handler deciding the outcome of submissions.
func (c *Client) SetSubmitHandler(handler SubmitHandler) {
	c.mu.Lock()
	c.onSubmit = handler
	c.mu.Unlock()
}

// SetSignatureStatus overrides the status reported for sig. A nil status
// makes the signature unknown.
func (c *Client) SetSignatureStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status == nil {
		delete(c.statuses, sig)
		return
	}
	c.statuses[sig] = status
}

// ExpireBlockhash marks a previously issued blockhash as no longer valid.
func (c *Client) ExpireBlockhash(hash solana.Blockhash) {
	c.mu.Lock()
	c.blockhashes[hash] = false
	c.mu.Unlock()
}

// ExpireAllBlockhashes marks every issued blockhash as no longer valid.
func (c *Client) ExpireAllBlockhashes() {
	c.mu.Lock()
	for hash := range c.blockhashes {
		c.blockhashes[hash] = false
	}
	c.mu.Unlock()
}

// Submitted returns the accepted transactions in submission order.
func (c *Client) Submitted() []solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]solana.Transaction(nil), c.submitted...)
}

// Calls returns the number of calls made to method.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method]
}

// TotalCalls returns the number of calls made to any method.
func (c *Client) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int
	for _, count := range c.calls {
		total += count
	}
	return total
}

func (c *Client) observe(method string) error {
	c.calls[method]++
	return c.errors[method]
}

func (c *Client) credit(account ed25519.PublicKey, lamports uint64) {
	info := c.accounts[base58.Encode(account)]
	info.Lamports += lamports
	if info.Owner == nil {
		info.Owner = make([]byte, ed25519.PublicKeySize)
	}
	c.accounts[base58.Encode(account)] = info
}

func verifySignatures(txn solana.Transaction) error {
	if !txn.IsFullySigned() {
		return solana.NewTransactionError(solana.TransactionErrorMissingSignatureForFee)
	}

	message := txn.Message.Marshal()
	for i, sig := range txn.Signatures {
		if i >= len(txn.Message.Accounts) || !ed25519.Verify(txn.Message.Accounts[i], message, sig[:]) {
			return solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
		}
	}
	return nil
}

// RentExemptMinimum computes the rent exempt minimum for an account of size
// bytes under the default rent parameters.
func RentExemptMinimum(size uint64) uint64 {
	const (
		accountStorageOverhead = 128
		lamportsPerByteYear    = 3480
		exemptionThreshold     = 2
	)
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThreshold
}

// ConfirmedStatus is a successful status at confirmed commitment.
func ConfirmedStatus() *solana.SignatureStatus {
	confirmations := 1
	return &solana.SignatureStatus{
		Slot:               1,
		Confirmations:      &confirmations,
		ConfirmationStatus: solana.CommitmentConfirmed.Commitment,
	}
}

// ProcessedStatus is a successful status not yet at confirmed commitment.
func ProcessedStatus() *solana.SignatureStatus {
	confirmations := 0
	return &solana.SignatureStatus{
		Slot:               1,
		Confirmations:      &confirmations,
		ConfirmationStatus: solana.CommitmentProcessed.Commitment,
	}
}

// FailedStatus is a confirmed status for a transaction that failed on chain
// in instruction index with err.
func FailedStatus(index int, err error) *solana.SignatureStatus {
	status := ConfirmedStatus()
	status.ErrorResult = InstructionFailure(index, err)
	return status
}

// InstructionFailure builds the transaction error for a failed instruction.
func InstructionFailure(index int, err error) *solana.TransactionError {
	txErr, parseErr := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: index,
		Err:   err,
	})
	if parseErr != nil {
		panic(errors.Wrap(parseErr, "invalid instruction error"))
	}
	return txErr
}
