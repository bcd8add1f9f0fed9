package cartridge

import "testing"

func TestMapper003_CHRBankSwitch(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000),
		chrROM: make([]uint8, 0x2000*4), // 4 x 8KB CHR banks
	}
	for i := range cart.chrROM {
		cart.chrROM[i] = uint8(i / 0x2000)
	}
	mapper := NewMapper003(cart)

	if v := mapper.ReadCHR(0x0000); v != 0 {
		t.Errorf("expected bank 0 selected at power-on, got %d", v)
	}

	mapper.WritePRG(0x8000, 0x02)
	if v := mapper.ReadCHR(0x0000); v != 2 {
		t.Errorf("expected bank 2 after select write, got %d", v)
	}
}

func TestMapper003_PRGIsFixed(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000), // 16KB, mirrors to fill 32KB window
		chrROM: make([]uint8, 0x2000),
	}
	for i := range cart.prgROM {
		cart.prgROM[i] = uint8(i & 0xFF)
	}
	mapper := NewMapper003(cart)

	v1 := mapper.ReadPRG(0x8000)
	v2 := mapper.ReadPRG(0xC000)
	if v1 != v2 {
		t.Errorf("expected 16KB PRG to mirror at 0xC000: 0x8000=0x%02X 0xC000=0x%02X", v1, v2)
	}

	mapper.WritePRG(0x8000, 0x03) // CHR select write should not move PRG
	if v := mapper.ReadPRG(0x8000); v != v1 {
		t.Errorf("PRG changed after CHR bank select write")
	}
}

func TestMapper003_CHRBankSelectMasksToFourBanks(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000),
		chrROM: make([]uint8, 0x2000*2), // only 2 banks present
	}
	mapper := NewMapper003(cart)

	mapper.WritePRG(0x8000, 0x03) // requests bank 3, but only 2 exist
	bank := mapper.bankSelect % mapper.chrBanks
	if bank != 1 {
		t.Errorf("expected bank selection to wrap to 1, got %d", bank)
	}
}

func TestMapper003_SnapshotRestore(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000),
		chrROM: make([]uint8, 0x2000*2),
		mirror: MirrorHorizontal,
	}
	mapper := NewMapper003(cart)
	mapper.WritePRG(0x8000, 0x01)

	snap := mapper.Snapshot()
	restored := NewMapper003(cart)
	restored.Restore(snap)

	if restored.bankSelect != mapper.bankSelect {
		t.Errorf("expected bankSelect %d, got %d", mapper.bankSelect, restored.bankSelect)
	}
}
