package cartridge

import "testing"

func TestMapper002_FixedLastBank(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000*4), // 4 x 16KB banks
		chrROM: make([]uint8, 0x2000),
	}
	for i := range cart.prgROM {
		cart.prgROM[i] = uint8(i / 0x4000)
	}
	mapper := NewMapper002(cart)

	// 0xC000-0xFFFF is always the last bank, regardless of bank select.
	if v := mapper.ReadPRG(0xC000); v != 3 {
		t.Errorf("expected last bank (3) fixed at 0xC000, got %d", v)
	}

	mapper.WritePRG(0x8000, 0x02)
	if v := mapper.ReadPRG(0xC000); v != 3 {
		t.Errorf("bank select write should not move the fixed 0xC000 bank, got %d", v)
	}
}

func TestMapper002_SwitchableLowBank(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000*4),
		chrROM: make([]uint8, 0x2000),
	}
	for i := range cart.prgROM {
		cart.prgROM[i] = uint8(i / 0x4000)
	}
	mapper := NewMapper002(cart)

	mapper.WritePRG(0x8000, 0x02)
	if v := mapper.ReadPRG(0x8000); v != 2 {
		t.Errorf("expected bank 2 switched in at 0x8000, got %d", v)
	}

	mapper.WritePRG(0xFFFF, 0x01) // any address >= 0x8000 selects the bank
	if v := mapper.ReadPRG(0x8000); v != 1 {
		t.Errorf("expected bank 1 switched in at 0x8000, got %d", v)
	}
}

func TestMapper002_CHRIsAlwaysRAM(t *testing.T) {
	cart := &Cartridge{
		prgROM:    make([]uint8, 0x4000),
		chrROM:    make([]uint8, 0x2000),
		hasCHRRAM: true,
	}
	mapper := NewMapper002(cart)

	mapper.WriteCHR(0x0010, 0x77)
	if v := mapper.ReadCHR(0x0010); v != 0x77 {
		t.Errorf("expected CHR RAM write to persist, got 0x%02X", v)
	}
}

func TestMapper002_SRAM(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000),
		chrROM: make([]uint8, 0x2000),
	}
	mapper := NewMapper002(cart)

	mapper.WritePRG(0x6000, 0x42)
	if v := mapper.ReadPRG(0x6000); v != 0x42 {
		t.Errorf("expected SRAM write to persist, got 0x%02X", v)
	}
}

func TestMapper002_SnapshotRestore(t *testing.T) {
	cart := &Cartridge{
		prgROM: make([]uint8, 0x4000*2),
		chrROM: make([]uint8, 0x2000),
		mirror: MirrorVertical,
	}
	mapper := NewMapper002(cart)
	mapper.WritePRG(0x8000, 0x01)

	snap := mapper.Snapshot()
	restored := NewMapper002(cart)
	restored.Restore(snap)

	if restored.bankSelect != mapper.bankSelect {
		t.Errorf("expected bankSelect %d, got %d", mapper.bankSelect, restored.bankSelect)
	}
	if snap.Mirror != MirrorVertical {
		t.Errorf("expected snapshot mirror to reflect cartridge header, got %v", snap.Mirror)
	}
}
