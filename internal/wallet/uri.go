package wallet

import (
	"fmt"
	"math/big"
)

// evmURIScheme is the request-URI scheme for account-model chains.
const evmURIScheme = "ethereum"

// NativeTransferURI builds an EIP-681-style payment request for a native
// coin transfer: scheme:address@chainId?value=<smallestUnit>.
func NativeTransferURI(address string, chainID int64, value *big.Int) string {
	return fmt.Sprintf("%s:%s@%d?value=%s", evmURIScheme, address, chainID, value.String())
}

// TokenTransferURI builds an EIP-681-style contract-call descriptor for a
// fungible-token transfer:
// scheme:contractAddress@chainId/transfer?address=<recipient>&uint256=<smallestUnit>.
func TokenTransferURI(contract string, chainID int64, recipient string, value *big.Int) string {
	return fmt.Sprintf("%s:%s@%d/transfer?address=%s&uint256=%s",
		evmURIScheme, contract, chainID, recipient, value.String())
}
