package walletsvc

import "bytes"

// getWalletTxns implements the get_txs selection rule in full (spec.md
// §4.H), grounded on original_source's tx_filter.rs::get_wallet_txns:
// confirmed transactions come from walking the chain tip-to-genesis
// until a block's time is at or before the wallet's last_update, unconfirmed
// ones come from the whole mempool, and the returned UTxO set is
// scanned only across the confirmed matches.
func (s *Server) getWalletTxns(req getTransactionsRequest) transactionsResponse {
	confirmedSend, confirmedRecv, newLastUpdate := s.filterConfirmedTransactions(req.PkScript, req.PublicKey, req.LastUpdate)
	unconfirmedSend, unconfirmedRecv := s.filterUnconfirmedTransactions(req.PkScript, req.PublicKey)

	confirmed := make([]walletTx, 0, len(confirmedSend)+len(confirmedRecv))
	confirmed = append(confirmed, confirmedSend...)
	confirmed = append(confirmed, confirmedRecv...)
	utxos := s.filterUTXO(confirmed, req.PkScript)

	return transactionsResponse{
		ConfirmedSend:   confirmedSend,
		ConfirmedRecv:   confirmedRecv,
		UnconfirmedSend: unconfirmedSend,
		UnconfirmedRecv: unconfirmedRecv,
		UTXOs:           utxos,
		NewLastUpdate:   newLastUpdate,
	}
}

func (s *Server) filterConfirmedTransactions(pkScript, publicKey []byte, lastUpdate uint32) (send, recv []walletTx, newLastUpdate uint32) {
	id := s.Chain.Tip()
	first := true

	for {
		b, ok := s.Chain.Get(id)
		if !ok {
			break
		}
		if first {
			newLastUpdate = b.Header.Time
			first = false
		}
		if b.Header.Time <= lastUpdate {
			break
		}

		date := b.Header.TimeStamp().Format(dateFormat)
		for _, t := range b.Txs {
			if isSend(t, publicKey) {
				send = append(send, walletTx{Tx: t, Date: date})
				continue
			}
			if isRecv(t, pkScript) {
				recv = append(recv, walletTx{Tx: t, Date: date})
			}
		}

		if b.Header.PrevBlock == ([32]byte{}) {
			break
		}
		id = b.Header.PrevBlock
	}
	return send, recv, newLastUpdate
}

func (s *Server) filterUnconfirmedTransactions(pkScript, publicKey []byte) (send, recv []walletTx) {
	date := formatNow()
	for _, t := range s.Mempool.All() {
		if isSend(t, publicKey) {
			send = append(send, walletTx{Tx: t, Date: date})
			continue
		}
		if isRecv(t, pkScript) {
			recv = append(recv, walletTx{Tx: t, Date: date})
		}
	}
	return send, recv
}

func (s *Server) filterUTXO(confirmed []walletTx, pkScript []byte) []utxoEntry {
	var entries []utxoEntry
	for _, w := range confirmed {
		txid := w.Tx.Hash()
		for index, out := range s.UTXO.OutputsFor(txid) {
			if bytes.Equal(out.PkScript, pkScript) {
				entries = append(entries, utxoEntry{TxID: txid, Index: index, Out: out})
			}
		}
	}
	return entries
}
