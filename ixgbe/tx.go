package ixgbe

import "github.com/ixy-go/ixy/memory"

// clean reclaims completed transmit descriptors in batches of 32,
// freeing every buffer in a completed batch back to its originating
// mempool (spec.md §4.6 step 1).
func (q *TxQueue) clean() {
	for {
		if q.cleanIndex == q.txIndex {
			return
		}

		batchLast := (q.cleanIndex + cleanBatchSize - 1) % q.numEntries

		wb := q.descriptors.writeback(batchLast)
		if wb.Status&0x1 == 0 {
			return
		}

		for j := 0; j < cleanBatchSize; j++ {
			idx := (q.cleanIndex + j) % q.numEntries
			if q.virtAddrs[idx] != nil {
				q.virtAddrs[idx].Free()
				q.virtAddrs[idx] = nil
			}
		}

		q.cleanIndex = (q.cleanIndex + cleanBatchSize) % q.numEntries
	}
}

// txBatch implements spec.md §4.6: clean completed descriptors, then
// enqueue as many input buffers as fit, returning the number accepted.
func (q *TxQueue) txBatch(bufs []*memory.PktBuf) int {
	q.clean()

	n := 0

	for _, buf := range bufs {
		next := (q.txIndex + 1) % q.numEntries
		if next == q.cleanIndex {
			break // ring full
		}

		rd := q.descriptors.read(q.txIndex)
		rd.BufferAddr = buf.DataPhysAddr()
		rd.CmdTypeLen = txdCmdIFCS | txdCmdRS | txdCmdEOP | txdCmdDEXT | txdDTypAdv | buf.Size
		rd.OlinfoStatus = buf.Size << txdPaylenShift

		q.virtAddrs[q.txIndex] = buf
		q.txIndex = next
		n++
	}

	if n > 0 {
		// Store-release: the tail write must not be visible to the NIC
		// before every descriptor in the batch has been written.
		q.bar.Write32(regTDT(q.qid), uint32(q.txIndex))
	}

	return n
}
