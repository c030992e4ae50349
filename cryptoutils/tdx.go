package cryptoutils

import (
	"bytes"
	"fmt"

	tdx_abi "github.com/google/go-tdx-guest/abi"
	tdx_pb "github.com/google/go-tdx-guest/proto/tdx"
	"github.com/google/go-tdx-guest/verify"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// TDXVerifier checks callback proofs that are raw TDX quotes produced by an
// oracle running inside a TDX guest. The quote's report data must bind the
// callback digest in its first 32 bytes; the remaining 32 bytes are reserved.
type TDXVerifier struct {
	options *verify.Options
}

// NewTDXVerifier creates a verifier with the given quote verification
// options. Passing nil uses verify.DefaultOptions, which checks the quote
// signature chain against Intel's PCS roots.
func NewTDXVerifier(options *verify.Options) *TDXVerifier {
	if options == nil {
		options = verify.DefaultOptions()
	}
	return &TDXVerifier{options: options}
}

// Verify parses and verifies the quote, checks that its report data binds the
// callback digest, and only then decodes the cleartext.
func (v *TDXVerifier) Verify(requestID interfaces.RequestID, cleartext []byte, proof []byte) (interfaces.DecodedPayload, error) {
	protoQuote, err := tdx_abi.QuoteToProto(proof)
	if err != nil {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: could not parse quote: %v", interfaces.ErrProofInvalid, err)
	}

	v4Quote, ok := protoQuote.(*tdx_pb.QuoteV4)
	if !ok {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: unsupported quote type %T", interfaces.ErrProofInvalid, protoQuote)
	}

	if err := verify.TdxQuote(protoQuote, v.options); err != nil {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: quote verification failed: %v", interfaces.ErrProofInvalid, err)
	}

	var reportData [64]byte
	copy(reportData[:32], CallbackDigest(requestID, cleartext))
	if !bytes.Equal(v4Quote.TdQuoteBody.ReportData, reportData[:]) {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: report data %x does not bind callback digest",
			interfaces.ErrProofInvalid, v4Quote.TdQuoteBody.ReportData)
	}

	return DecodePayload(cleartext)
}
