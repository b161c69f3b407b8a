package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"gobetrelay/addressmap"
	"gobetrelay/types"
)

// Address returns the destination account bound to an origin identity
func (a *API) Address(w http.ResponseWriter, r *http.Request) {
	originChain := r.URL.Query().Get("originChain")
	originAddress := r.URL.Query().Get("originAddress")
	if originAddress == "" {
		a.badRequest(w, "originAddress", "originAddress is required")
		return
	}
	if _, err := a.Registry.Lookup(originChain); err != nil {
		a.responseError(w, err)
		return
	}
	if !a.validOriginAddress(w, originChain, originAddress) {
		return
	}

	out := &AddressResponse{
		Success:       true,
		OriginChain:   originChain,
		OriginAddress: originAddress,
		Version:       addressmap.DerivationVersion,
		Native:        originChain == a.Mapper.Destination(),
	}

	if !out.Native && a.Store != nil {
		rec, err := a.Store.GetAddressBookRecord(r.Context(), originChain, originAddress, addressmap.DerivationVersion)
		if err != nil {
			a.Logger.Warn("address book lookup failed", zap.Error(err))
		}
		if rec != nil {
			out.DestinationAddress = rec.DestinationAddress
			responseJSON(w, out, http.StatusOK)
			return
		}
	}

	dest, err := a.Mapper.Derive(originChain, originAddress)
	if err != nil {
		a.responseError(w, err)
		return
	}
	out.DestinationAddress = dest.Hex()

	if !out.Native && a.Store != nil {
		err := a.Store.UpsertAddressBookRecord(r.Context(), &types.AddressBookRecord{
			OriginChain:        originChain,
			OriginAddress:      originAddress,
			DestinationAddress: out.DestinationAddress,
			Version:            addressmap.DerivationVersion,
		})
		if err != nil {
			a.Logger.Warn("cannot store address book record", zap.Error(err))
		}
	}
	responseJSON(w, out, http.StatusOK)
}
