// Package newsletter holds the wallet addresses allowed to use the
// newsletter feature.
package newsletter

import "slices"

var productionAddresses = []string{
	// sigle.btc
	"SP2EVYKET55QH40RAZE5PVZ363QX0X6BSRP4C7H0W",
	// leopradel.btc
	"SP3VCX5NFQ8VCHFS9M6N40ZJNVTRT4HZ62WFH5C4Q",
	// quentin.btc
	"SP24GYRG3M7T0S6FZE9RVVP9PNNZQJQ614650G590",
	// test account
	"SPRG63HF7QJJ8H7JN0DJQZH2P1FCGYVHPYBXMYGB",
	// jackbinswitch.btc
	"SPQE3J7XMMK0DN0BWJZHGE6B05VDYQRXRMDV734D",
	// whenindoubt.btc
	"SP398XE371G08T84A99TCBD8XKWY3S7VVX6JKJWKY",
	// nftclothingclub.btc
	"SP2ABRYMZ38D5BHDMWPX6V0PKYA733W2T755DKQ72",
	// stxldn.btc
	"SPCMGSQF3ME39XN7W6RV4M21HFRHC2BGJH6S07V7",
	// bigrpic.btc
	"SP2H6HVZK6X3Z8F4PKF284AZJR6FH4H9J4W6KVV8T",
	// morguf.btc
	"SP21CYC2GKWTVK3FHFF4VVJNKVNQDMRY5GQS27XQB",
	// friedger.btc
	"SPN4Y5QPGQA8882ZXW90ADC2DHYXMSTN8VAR8C3X",
	// johnd.btc
	"SP14W78Q821B3HQ3ED30624Z1F13X4JMFZY3N5SK4",
	// behindthescenes.btc
	"SP1MX63HP0YD1TFAR0J6N6VYN3KVED5AF5JHPH1B7",
	// wampastompa.btc
	"SP22W7TM6NG3PJ2XVVND2E06D50K3DDNREBTKGFD3",
}

// gregogun.btc, allowed outside production only
const developmentAddress = "SP1F48HCD4SP4HT8BHQPXZ35615764KC80ACNMBDZ"

// AllowList is an immutable set of addresses. The zero value is empty.
type AllowList struct {
	ordered []string
	set     map[string]struct{}
}

// New builds the list for the environment. Outside production the
// development address is added to the production addresses.
func New(production bool) AllowList {
	addresses := slices.Clone(productionAddresses)
	if !production {
		addresses = append(addresses, developmentAddress)
	}

	set := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		set[a] = struct{}{}
	}

	return AllowList{ordered: addresses, set: set}
}

// ProductionAddresses returns a copy of the production addresses
func ProductionAddresses() []string {
	return slices.Clone(productionAddresses)
}

// Contains reports whether the address is allowed
func (l AllowList) Contains(address string) bool {
	_, ok := l.set[address]
	return ok
}

// Addresses returns a copy of the allowed addresses, in declaration order
func (l AllowList) Addresses() []string {
	return slices.Clone(l.ordered)
}

// Len returns the number of allowed addresses
func (l AllowList) Len() int {
	return len(l.ordered)
}
